package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedProducesUnitVector(t *testing.T) {
	e, err := NewEmbedder(t.TempDir())
	require.NoError(t, err)

	vec := e.Embed("the quick brown fox jumps over the lazy dog")
	require.Len(t, vec, Dim)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestEmbedIsDeterministic(t *testing.T) {
	e, err := NewEmbedder(t.TempDir())
	require.NoError(t, err)

	a := e.Embed("binary search over a sorted slice")
	b := e.Embed("binary search over a sorted slice")
	assert.Equal(t, a, b)
}

func TestEmbedEmptyTextIsZeroVector(t *testing.T) {
	e, err := NewEmbedder(t.TempDir())
	require.NoError(t, err)

	for _, text := range []string{"", "   ", "the and of to"} {
		vec := e.Embed(text)
		for _, v := range vec {
			assert.Zero(t, v, "text %q should embed to the zero vector", text)
		}
	}
}

func TestSimilarTextsScoreHigherThanUnrelated(t *testing.T) {
	e, err := NewEmbedder(t.TempDir())
	require.NoError(t, err)

	base := e.Embed("sorting algorithms compare elements and swap them into order")
	similar := e.Embed("sorting algorithms compare elements and move them into order")
	unrelated := e.Embed("photosynthesis converts sunlight water and carbon dioxide into glucose")

	assert.Greater(t, dot(base, similar), dot(base, unrelated))
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestSplitFragments(t *testing.T) {
	assert.Nil(t, SplitFragments("", 100))
	assert.Nil(t, SplitFragments("   ", 100))

	frags := SplitFragments("one two three four five", 2)
	assert.Equal(t, []string{"one two", "three four", "five"}, frags)

	frags = SplitFragments("single", 100)
	assert.Equal(t, []string{"single"}, frags)
}

func TestTokenizeLowercasesAndSplits(t *testing.T) {
	tokens := Tokenize("Hello, World! x=42;")
	assert.Equal(t, []string{"hello", "world", "x", "42"}, tokens)
}
