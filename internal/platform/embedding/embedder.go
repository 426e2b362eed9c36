// Package embedding provides the text-embedding resource behind the
// plagiarism analyzer: feature-hashed, frequency-weighted bag-of-words
// vectors, unit-normalized so cosine similarity reduces to a dot product.
package embedding

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Dim is the fixed embedding dimensionality. Persisted index files encode
// vectors of this length; changing it invalidates existing indexes.
const Dim = 256

// Embedder turns text into unit-length Dim-dimensional vectors. Immutable
// after construction: safe for concurrent use without locking.
type Embedder struct {
	stopwords map[string]struct{}
	idf       map[string]float64 // optional corpus weights loaded from disk
}

// statsFile holds optional inverse-document-frequency weights produced
// offline. Absent file means uniform weighting.
const statsFile = "embedder_stats.json"

func NewEmbedder(dataDir string) (*Embedder, error) {
	e := &Embedder{
		stopwords: defaultStopwords(),
		idf:       map[string]float64{},
	}

	path := filepath.Join(dataDir, statsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return e, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read embedder stats %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &e.idf); err != nil {
		return nil, fmt.Errorf("failed to parse embedder stats %s: %w", path, err)
	}
	return e, nil
}

// Embed maps text to a unit vector. Empty or all-stopword text yields the
// zero vector, which matches nothing.
func (e *Embedder) Embed(text string) []float32 {
	vec := make([]float32, Dim)
	counts := map[string]int{}
	for _, tok := range Tokenize(text) {
		if _, skip := e.stopwords[tok]; skip {
			continue
		}
		counts[tok]++
	}

	for tok, n := range counts {
		weight := 1 + math.Log(float64(n))
		if w, ok := e.idf[tok]; ok {
			weight *= w
		}
		h := fnv.New32a()
		h.Write([]byte(tok))
		bucket := h.Sum32() % Dim
		// Signed hashing halves collision bias.
		if h.Sum32()&0x80000000 != 0 {
			vec[bucket] -= float32(weight)
		} else {
			vec[bucket] += float32(weight)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

// Tokenize lowercases and splits on non-alphanumeric runes.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// SplitFragments chunks text into pieces of roughly the given word count,
// the granularity at which the similarity index stores entries.
func SplitFragments(text string, words int) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	var out []string
	for start := 0; start < len(fields); start += words {
		end := start + words
		if end > len(fields) {
			end = len(fields)
		}
		out = append(out, strings.Join(fields[start:end], " "))
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "but", "by", "for",
		"if", "in", "into", "is", "it", "no", "not", "of", "on", "or",
		"such", "that", "the", "their", "then", "there", "these", "they",
		"this", "to", "was", "will", "with",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
