// Package embedding maps text to fixed-dimension vectors.
//
// The only implementation is a hashed bag-of-words: deterministic and
// order-independent, with no semantic understanding. Provider keeps the rest
// of the system independent of that choice.
package embedding

import (
	"math"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultDimensions is the vector size used when none is configured.
const DefaultDimensions = 384

// Provider turns text into an embedding vector.
type Provider interface {
	// Embed returns a vector of length Dimensions(). A text with no tokens
	// yields the zero vector, which has no similarity to anything.
	Embed(text string) []float32

	// Dimensions returns the vector length.
	Dimensions() int

	// Name identifies the provider, e.g. for logs.
	Name() string
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Tokenize lower-cases text and splits it on runs of non-word characters.
// Empty tokens are dropped.
func Tokenize(text string) []string {
	parts := nonWord.Split(strings.ToLower(text), -1)
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// HashedBagOfWords hashes each token into one of dims buckets, counts
// occurrences, and L2-normalises the counts.
type HashedBagOfWords struct {
	dims int
}

var _ Provider = (*HashedBagOfWords)(nil)

// NewHashedBagOfWords returns a provider with the given dimension.
// dims <= 0 selects DefaultDimensions.
func NewHashedBagOfWords(dims int) *HashedBagOfWords {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashedBagOfWords{dims: dims}
}

// Embed implements Provider.
func (h *HashedBagOfWords) Embed(text string) []float32 {
	vec := make([]float32, h.dims)
	for _, tok := range Tokenize(text) {
		vec[xxhash.Sum64String(tok)%uint64(h.dims)]++
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}

	norm := math.Sqrt(sum)
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec
}

// Dimensions implements Provider.
func (h *HashedBagOfWords) Dimensions() int { return h.dims }

// Name implements Provider.
func (h *HashedBagOfWords) Name() string { return "hashed-bag-of-words" }
