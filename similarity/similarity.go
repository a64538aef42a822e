// Package similarity ranks existing translations by likeness to a query
// key. The validator uses it to hand an AI translator a handful of
// precedents ("these nearby keys were translated like this") so suggested
// phrasing stays consistent with the rest of the locale.
//
// The index is built fresh per validation run from one locale's current
// key-translation pairs and discarded afterwards; nothing is persisted.
package similarity

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// placeholderToken is the canonical word token that placeholders, '#' count
// slots, and digit runs normalize to. Kept even though it is shorter than
// the minimum token length.
const placeholderToken = "0"

const (
	// Scoring blend over the three key representations.
	weightWords   = 0.65
	weightTrigram = 0.25
	weightPrefix  = 0.10

	// Re-ranking blend between key score and translation consistency.
	weightKeyScore    = 0.85
	weightConsistency = 0.15

	// Candidates scoring below the floor are discarded outright.
	scoreFloor = 0.12

	// Only the top slice by key score is re-ranked.
	rerankPool = 20

	// DefaultMaxResults bounds a query when the caller passes <= 0.
	DefaultMaxResults = 5
)

var (
	placeholderRe = regexp.MustCompile(`\{\d+\}|#|\d+`)
	nonWordRe     = regexp.MustCompile(`[^a-z0-9]+`)
)

// Match is one ranked result.
type Match struct {
	Key         string
	Translation string
	Score       float64
}

type entry struct {
	key         string
	translation string
	words       map[string]bool
	trigrams    map[string]bool
	flat        string
}

// Index is an inverted index over one locale's existing translations.
type Index struct {
	entries []entry
	idf     map[string]float64
	maxIDF  float64
	byWord  map[string][]int
}

// New builds an index from existing key-translation pairs. Plural values
// should be flattened to their representative form by the caller; the
// target key being queried must not be part of existing.
func New(existing map[string]string) *Index {
	keys := make([]string, 0, len(existing))
	for k := range existing {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ix := &Index{
		idf:    make(map[string]float64),
		byWord: make(map[string][]int),
	}

	df := make(map[string]int)
	for _, k := range keys {
		e := entry{
			key:         k,
			translation: existing[k],
			words:       wordTokens(k),
			trigrams:    trigramSet(flatten(k)),
			flat:        flatten(k),
		}
		for w := range e.words {
			df[w]++
		}
		ix.entries = append(ix.entries, e)
	}

	n := len(ix.entries)
	for w, count := range df {
		weight := math.Log(float64(n+1)/float64(count+1)) + 1
		ix.idf[w] = weight
		if weight > ix.maxIDF {
			ix.maxIDF = weight
		}
	}
	for i, e := range ix.entries {
		for w := range e.words {
			ix.byWord[w] = append(ix.byWord[w], i)
		}
	}
	return ix
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int { return len(ix.entries) }

// Query ranks existing entries by similarity to k and returns at most
// maxResults matches (DefaultMaxResults when maxResults <= 0), best first,
// ties broken by key lexical order.
func (ix *Index) Query(k string, maxResults int) []Match {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if len(ix.entries) == 0 {
		return nil
	}

	qWords := wordTokens(k)
	qFlat := flatten(k)
	qTrigrams := trigramSet(qFlat)

	// Restrict candidates to entries sharing at least one word token; with
	// no word tokens in the query, every entry is a candidate.
	candidates := ix.candidateSet(qWords)

	type scored struct {
		idx   int
		score float64
	}
	var pool []scored
	for _, i := range candidates {
		e := ix.entries[i]
		s := weightWords*ix.weightedJaccard(qWords, e.words) +
			weightTrigram*jaccard(qTrigrams, e.trigrams) +
			weightPrefix*prefixScore(qFlat, e.flat)
		if s < scoreFloor {
			continue
		}
		pool = append(pool, scored{idx: i, score: s})
	}
	if len(pool) == 0 {
		return nil
	}

	sort.Slice(pool, func(a, b int) bool {
		if pool[a].score != pool[b].score {
			return pool[a].score > pool[b].score
		}
		return ix.entries[pool[a].idx].key < ix.entries[pool[b].idx].key
	})
	if len(pool) > rerankPool {
		pool = pool[:rerankPool]
	}

	// Among near-tied key matches, prefer entries whose existing
	// translation agrees with the best match's translation: consistent
	// context yields consistent AI phrasing.
	bestTrans := wordTokens(ix.entries[pool[0].idx].translation)
	for i := range pool {
		consistency := jaccard(bestTrans, wordTokens(ix.entries[pool[i].idx].translation))
		pool[i].score = weightKeyScore*pool[i].score + weightConsistency*consistency
	}

	sort.Slice(pool, func(a, b int) bool {
		if pool[a].score != pool[b].score {
			return pool[a].score > pool[b].score
		}
		return ix.entries[pool[a].idx].key < ix.entries[pool[b].idx].key
	})

	if len(pool) > maxResults {
		pool = pool[:maxResults]
	}
	out := make([]Match, len(pool))
	for i, s := range pool {
		e := ix.entries[s.idx]
		out[i] = Match{Key: e.key, Translation: e.translation, Score: s.score}
	}
	return out
}

func (ix *Index) candidateSet(qWords map[string]bool) []int {
	if len(qWords) == 0 {
		all := make([]int, len(ix.entries))
		for i := range all {
			all[i] = i
		}
		return all
	}
	seen := make(map[int]bool)
	var out []int
	for w := range qWords {
		for _, i := range ix.byWord[w] {
			if !seen[i] {
				seen[i] = true
				out = append(out, i)
			}
		}
	}
	sort.Ints(out)
	return out
}

// weightedJaccard computes IDF-weighted Jaccard similarity over word token
// sets. Tokens never seen during indexing default to the maximum observed
// weight: a rare word should count as highly discriminative.
func (ix *Index) weightedJaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	var inter, union float64
	for w := range a {
		weight := ix.tokenWeight(w)
		union += weight
		if b[w] {
			inter += weight
		}
	}
	for w := range b {
		if !a[w] {
			union += ix.tokenWeight(w)
		}
	}
	if union == 0 {
		return 0
	}
	return inter / union
}

func (ix *Index) tokenWeight(w string) float64 {
	if weight, ok := ix.idf[w]; ok {
		return weight
	}
	if ix.maxIDF > 0 {
		return ix.maxIDF
	}
	return 1
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for x := range a {
		if b[x] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// prefixScore is the length of the common prefix of the flattened forms,
// normalized by the longer length.
func prefixScore(a, b string) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	if longer == 0 {
		return 0
	}
	return float64(i) / float64(longer)
}

// wordTokens tokenizes a key or translation: placeholders, '#' and digit
// runs normalize to the canonical placeholder token, camelCase boundaries
// split, everything case-folds, and tokens shorter than two characters drop
// unless they are the placeholder token.
func wordTokens(s string) map[string]bool {
	s = placeholderRe.ReplaceAllString(s, " "+placeholderToken+" ")
	s = splitCamel(s)
	s = strings.ToLower(s)

	out := make(map[string]bool)
	for _, tok := range nonWordRe.Split(s, -1) {
		if tok == "" {
			continue
		}
		if len(tok) < 2 && tok != placeholderToken {
			continue
		}
		out[tok] = true
	}
	return out
}

// flatten produces the non-word-split normalized form used for trigrams and
// prefix scoring: placeholders canonicalized, lower-cased, with everything
// but letters and digits removed.
func flatten(s string) string {
	s = placeholderRe.ReplaceAllString(s, placeholderToken)
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// trigramSet returns character trigrams of s, degrading to bigrams then
// unigrams for very short strings.
func trigramSet(s string) map[string]bool {
	out := make(map[string]bool)
	runes := []rune(s)
	n := 3
	if len(runes) < 3 {
		n = 2
	}
	if len(runes) < 2 {
		n = 1
	}
	if len(runes) == 0 {
		return out
	}
	for i := 0; i+n <= len(runes); i++ {
		out[string(runes[i:i+n])] = true
	}
	return out
}

// splitCamel inserts spaces at lower-to-upper boundaries.
func splitCamel(s string) string {
	var b strings.Builder
	var prev rune
	for _, r := range s {
		if unicode.IsUpper(r) && unicode.IsLower(prev) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
