// Package translate implements the AI translation collaborator used by the
// fix engine to fill missing locale entries. It speaks two HTTP API shapes
// (OpenAI-compatible chat completions and the native Gemini API); everything
// else about a provider is configuration.
//
// Translation is best-effort by contract: any failure is returned to the
// caller, which degrades to static placeholder generation and never aborts
// the run.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/keyling/keyling/catalog"
	"github.com/keyling/keyling/similarity"
)

// APIFormat selects the request/response wire shape.
type APIFormat string

const (
	// FormatOpenAIChat is the OpenAI chat-completions shape, also spoken
	// by Groq, Ollama, and most self-hosted gateways.
	FormatOpenAIChat APIFormat = "openai-chat"
	// FormatGemini is the native Gemini generateContent shape.
	FormatGemini APIFormat = "gemini"
)

// Provider holds the configuration for one AI translation service.
type Provider struct {
	// Name is a human-readable label used in logs.
	Name string
	// URL is the full endpoint URL. For Gemini, "{model}" in the URL is
	// replaced by the configured model.
	URL string
	// Model is the model identifier sent with the request.
	Model string
	// APIKey authenticates the request. OpenAI-style providers receive it
	// as a Bearer token; Gemini as the x-goog-api-key header.
	APIKey string
	// Format selects the wire shape. Defaults to FormatOpenAIChat.
	Format APIFormat
	// Temperature for generation (0 used verbatim).
	Temperature float64
	// ProxyURL optionally routes requests through an HTTP(S) proxy.
	ProxyURL string
	// Timeout per HTTP attempt. Defaults to 120s.
	Timeout time.Duration
	// MaxRetries bounds retry attempts on 429/5xx. Defaults to 3.
	MaxRetries int
}

// Key is one missing key to translate.
type Key struct {
	Name string
	// Plural requests a plural record rather than a plain string.
	Plural bool
	// Context carries similar existing translations from the same locale,
	// best first, to keep suggested phrasing consistent.
	Context []similarity.Match
}

// Request asks for translations of a set of missing keys into one locale.
type Request struct {
	// Locale is the target locale id (the locale file's base name).
	Locale string
	// DefaultLocale is the source locale id, informational for the model.
	DefaultLocale string
	Keys          []Key
}

// Translator produces translation values for missing keys. A nil result for
// a key, a missing key in the map, or an error all cause the caller to fall
// back to static placeholders.
type Translator interface {
	Translate(ctx context.Context, req Request) (map[string]catalog.Value, error)
}

// Client is an HTTP-backed Translator.
type Client struct {
	provider Provider
	http     *http.Client
}

// NewClient builds a Client for the given provider.
func NewClient(p Provider) *Client {
	if p.Format == "" {
		p.Format = FormatOpenAIChat
	}
	if p.Timeout <= 0 {
		p.Timeout = 120 * time.Second
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = 3
	}
	return &Client{
		provider: p,
		http:     makeHTTPClient(p.ProxyURL, p.Timeout),
	}
}

// systemPrompt instructs the model to answer with a bare JSON object in the
// locale file's value schema.
const systemPrompt = `You are a professional software localizer. You translate user-interface strings for an application.

Rules:
- Keys use positional placeholders like {1}, {2}; keep every placeholder exactly as written, repositioned as the target grammar requires.
- Plural entries use '#' as the count slot; keep '#' in every plural form.
- Match the tone and wording of the reference translations when given.
- Answer with a single JSON object and nothing else. Map each requested key to its translation: a string for plain keys, or an object with optional "zero", "one", "many", "manyLimit" fields and a required "+2" field for plural keys.`

// Translate sends one request for all keys and parses the returned JSON
// object into translation values.
func (c *Client) Translate(ctx context.Context, req Request) (map[string]catalog.Value, error) {
	if len(req.Keys) == 0 {
		return map[string]catalog.Value{}, nil
	}

	body, err := c.buildRequest(req)
	if err != nil {
		return nil, err
	}

	text, err := c.call(ctx, body)
	if err != nil {
		return nil, err
	}

	return parseTranslations(text, req.Keys)
}

func (c *Client) buildRequest(req Request) ([]byte, error) {
	user := buildUserPrompt(req)
	switch c.provider.Format {
	case FormatGemini:
		return buildGeminiRequest(systemPrompt, user, c.provider.Temperature)
	default:
		return buildOpenAIChatRequest(c.provider.Model, systemPrompt, user, c.provider.Temperature)
	}
}

// buildUserPrompt renders the request deterministically: keys in input
// order, context entries best first.
func buildUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate the following keys from locale %q into locale %q.\n\n", req.DefaultLocale, req.Locale)
	for _, k := range req.Keys {
		if k.Plural {
			fmt.Fprintf(&b, "- %q (plural)\n", k.Name)
		} else {
			fmt.Fprintf(&b, "- %q\n", k.Name)
		}
		for _, m := range k.Context {
			fmt.Fprintf(&b, "  reference: %q was translated as %q\n", m.Key, m.Translation)
		}
	}
	return b.String()
}

func (c *Client) endpoint() string {
	u := c.provider.URL
	if c.provider.Format == FormatGemini {
		u = strings.ReplaceAll(u, "{model}", c.provider.Model)
	}
	return u
}

// call performs the HTTP exchange with bounded retries on 429 and 5xx.
func (c *Client) call(ctx context.Context, body []byte) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.provider.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 2 * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, retryable, err := c.once(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", fmt.Errorf("%s: retries exhausted: %w", c.provider.Name, lastErr)
}

func (c *Client) once(ctx context.Context, body []byte) (text string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.provider.APIKey != "" {
		if c.provider.Format == FormatGemini {
			req.Header.Set("x-goog-api-key", c.provider.APIKey)
		} else {
			req.Header.Set("Authorization", "Bearer "+c.provider.APIKey)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", true, err
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(data), 200))
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	text, err = extractResponseText(data)
	if err != nil {
		return "", false, err
	}
	return text, false, nil
}

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			t := http.DefaultTransport.(*http.Transport).Clone()
			t.Proxy = http.ProxyURL(parsed)
			transport = t
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

func buildOpenAIChatRequest(model, system, user string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
		Stream:      false,
	}
	return json.Marshal(req)
}

func buildGeminiRequest(system, user string, temperature float64) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature float64 `json:"temperature"`
	}
	req := struct {
		Contents          []content `json:"contents"`
		GenerationConfig  genConfig `json:"generationConfig"`
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
	}{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: user}}},
		},
		GenerationConfig: genConfig{Temperature: temperature},
	}
	if system != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	return json.Marshal(req)
}

// extractResponseText pulls the generated text out of either response shape.
func extractResponseText(body []byte) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	if errObj, ok := raw["error"]; ok {
		if errMap, ok := errObj.(map[string]any); ok {
			if msg, ok := errMap["message"].(string); ok {
				return "", fmt.Errorf("API error: %s", msg)
			}
		}
		return "", fmt.Errorf("API error: %v", errObj)
	}

	// OpenAI chat: choices[0].message.content
	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	// Gemini: candidates[0].content.parts[0].text
	if candidates, ok := raw["candidates"].([]any); ok && len(candidates) > 0 {
		if candidate, ok := candidates[0].(map[string]any); ok {
			if content, ok := candidate["content"].(map[string]any); ok {
				if parts, ok := content["parts"].([]any); ok && len(parts) > 0 {
					if part, ok := parts[0].(map[string]any); ok {
						if text, ok := part["text"].(string); ok {
							return text, nil
						}
					}
				}
			}
		}
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 300))
}

// parseTranslations decodes the model's JSON object into catalog values and
// checks each returned value against the requested shape. Models sometimes
// wrap JSON in a markdown fence; the fence is stripped first.
func parseTranslations(text string, keys []Key) (map[string]catalog.Value, error) {
	text = stripFence(text)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}

	wantPlural := make(map[string]bool, len(keys))
	for _, k := range keys {
		wantPlural[k.Name] = k.Plural
	}

	out := make(map[string]catalog.Value, len(raw))
	for name, rawVal := range raw {
		plural, requested := wantPlural[name]
		if !requested {
			continue // unrequested keys are dropped
		}
		v, err := catalog.DecodeValue(rawVal)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", name, err)
		}
		if plural && v.Kind() != catalog.KindPlural {
			return nil, fmt.Errorf("key %q: expected a plural record, got %v", name, v.Kind())
		}
		if !plural && v.Kind() != catalog.KindString {
			return nil, fmt.Errorf("key %q: expected a string", name)
		}
		out[name] = v
	}
	return out, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// SortedKeyNames returns the request's key names sorted; useful for logs.
func SortedKeyNames(req Request) []string {
	names := make([]string, len(req.Keys))
	for i, k := range req.Keys {
		names[i] = k.Name
	}
	sort.Strings(names)
	return names
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
