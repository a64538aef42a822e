// Package settings stores the user's provider API keys outside the
// repository, in the XDG data directory:
//
//	$XDG_DATA_HOME/keyling/auth.json  (default: ~/.local/share/keyling/auth.json)
//
// The file is a JSON object keyed by provider name and is written with
// 0600 permissions. Lookup order for a key:
//
//  1. KEYLING_API_KEY environment variable
//  2. the credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dataDirName = "keyling"
	fileName    = "auth.json"

	// EnvAPIKey overrides the store for every provider.
	EnvAPIKey = "KEYLING_API_KEY"
)

// Store holds API keys by provider name.
type Store map[string]string

// Path returns the auth.json location under the XDG data directory.
func Path() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, dataDirName, fileName), nil
}

// Load reads the credential store. A missing file yields an empty store.
func Load() (Store, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var s Store
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if s == nil {
		s = Store{}
	}
	return s, nil
}

// Save writes the store with owner-only permissions.
func (s Store) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// APIKey resolves the key for a provider, preferring the environment.
// Empty when neither source has one.
func APIKey(provider string) (string, error) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		return key, nil
	}
	s, err := Load()
	if err != nil {
		return "", err
	}
	return s[provider], nil
}

// SetAPIKey stores a provider key.
func SetAPIKey(provider, key string) error {
	s, err := Load()
	if err != nil {
		return err
	}
	s[provider] = key
	return s.Save()
}

// DeleteAPIKey removes a provider key. Removing an absent key is a no-op.
func DeleteAPIKey(provider string) error {
	s, err := Load()
	if err != nil {
		return err
	}
	if _, ok := s[provider]; !ok {
		return nil
	}
	delete(s, provider)
	return s.Save()
}
