package vectorize

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodeVectorizer(t *testing.T) *Vectorizer {
	t.Helper()

	v := New(64)
	v.AddDocument(0, "parse_json parses a json string into a value tree")
	v.AddDocument(1, "format_output formats a value tree as indented text")
	v.AddDocument(2, "parse_expression parses an arithmetic expression")
	v.Build()

	return v
}

func vectorNorm(vec []float32) float64 {
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}

	return math.Sqrt(sum)
}

func TestVectorizer_Vectorize(t *testing.T) {
	t.Run("UnitNorm", func(t *testing.T) {
		v := newCodeVectorizer(t)

		vec := v.Vectorize("parse json value")
		require.Len(t, vec, v.Dims())

		assert.InDelta(t, 1.0, vectorNorm(vec), 1e-5)
	})

	t.Run("OutOfVocabularyIsZero", func(t *testing.T) {
		v := newCodeVectorizer(t)

		vec := v.Vectorize("zebra quantum flux")
		require.Len(t, vec, v.Dims())

		assert.InDelta(t, 0.0, vectorNorm(vec), 1e-9)
	})

	t.Run("SimilarTextsAlign", func(t *testing.T) {
		v := newCodeVectorizer(t)

		a := v.Vectorize("parses json string")
		b := v.Vectorize("json string value")
		c := v.Vectorize("indented text output")

		var ab, ac float64
		for i := range a {
			ab += float64(a[i]) * float64(b[i])
			ac += float64(a[i]) * float64(c[i])
		}

		assert.Greater(t, ab, ac)
	})

	t.Run("RepeatedTermsSaturate", func(t *testing.T) {
		v := newCodeVectorizer(t)

		once := v.Vectorize("json")
		thrice := v.Vectorize("json json json")

		// Both normalize to unit vectors pointing the same way.
		require.Len(t, thrice, len(once))
		for i := range once {
			assert.InDelta(t, once[i], thrice[i], 1e-6)
		}
	})

	t.Run("NotBuilt", func(t *testing.T) {
		v := New(64)
		v.AddDocument(0, "some text")

		assert.Nil(t, v.Vectorize("some text"))
	})

	t.Run("EmptyCorpus", func(t *testing.T) {
		v := New(64)
		v.Build()

		assert.Nil(t, v.Vectorize("anything"))
	})

	t.Run("StaleAfterAdd", func(t *testing.T) {
		v := newCodeVectorizer(t)
		require.True(t, v.Built())

		v.AddDocument(3, "brand new text")
		assert.False(t, v.Built())
	})
}

func TestVectorizer_Build(t *testing.T) {
	t.Run("CapsDimensions", func(t *testing.T) {
		v := New(4)

		for i := 0; i < 20; i++ {
			v.AddDocument(uint32(i), fmt.Sprintf("term%02d shared words here", i))
		}

		v.Build()

		assert.Equal(t, 4, v.Dims())
		assert.Equal(t, 4, v.MaxDims())
	})

	t.Run("RareTermsWinSlots", func(t *testing.T) {
		v := New(2)

		// "common" appears everywhere; "rare" and "unique" appear once.
		v.AddDocument(0, "common rare")
		v.AddDocument(1, "common unique")
		v.AddDocument(2, "common")
		v.Build()

		_, hasRare := v.IDF("rare")
		_, hasUnique := v.IDF("unique")
		_, hasCommon := v.IDF("common")

		assert.True(t, hasRare)
		assert.True(t, hasUnique)
		assert.False(t, hasCommon)
	})

	t.Run("TieBreakLexicographic", func(t *testing.T) {
		v := New(2)

		// All three terms have df=1, so IDF ties; the lexicographically
		// smallest terms keep their slots.
		v.AddDocument(0, "cherry")
		v.AddDocument(1, "apple")
		v.AddDocument(2, "banana")
		v.Build()

		_, hasApple := v.IDF("apple")
		_, hasBanana := v.IDF("banana")
		_, hasCherry := v.IDF("cherry")

		assert.True(t, hasApple)
		assert.True(t, hasBanana)
		assert.False(t, hasCherry)
	})

	t.Run("Deterministic", func(t *testing.T) {
		build := func() *Vectorizer {
			v := New(8)
			v.AddDocument(0, "alpha beta gamma delta")
			v.AddDocument(1, "beta gamma delta epsilon")
			v.AddDocument(2, "gamma delta epsilon zeta")
			v.Build()

			return v
		}

		a := build()
		b := build()

		vecA := a.Vectorize("alpha gamma zeta")
		vecB := b.Vectorize("alpha gamma zeta")

		require.Len(t, vecB, len(vecA))
		for i := range vecA {
			assert.Equal(t, vecA[i], vecB[i])
		}
	})

	t.Run("IDFAlwaysPositive", func(t *testing.T) {
		v := New(16)

		// Even a term present in every document keeps idf = ln(1)+1 = 1.
		v.AddDocument(0, "everywhere")
		v.AddDocument(1, "everywhere")
		v.Build()

		idf, ok := v.IDF("everywhere")
		require.True(t, ok)
		assert.InDelta(t, 1.0, idf, 1e-6)
	})
}

func TestVectorizer_Accessors(t *testing.T) {
	v := New(0)
	assert.Equal(t, DefaultMaxDims, v.MaxDims())
	assert.Equal(t, 0, v.Dims())
	assert.Equal(t, uint32(0), v.TotalDocs())

	v.AddDocument(0, "alpha beta")
	v.AddDocument(1, "gamma")
	assert.Equal(t, uint32(2), v.TotalDocs())

	_, ok := v.IDF("alpha")
	assert.False(t, ok)

	v.Build()

	_, ok = v.IDF("alpha")
	assert.True(t, ok)
}
