package hnsw

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/seekgo/testutil"
)

func newTestIndex(t *testing.T, optFns ...func(o *Options)) *Index {
	t.Helper()

	seed := int64(42)

	fns := append([]func(o *Options){func(o *Options) {
		o.RandomSeed = &seed
	}}, optFns...)

	h, err := New(fns...)
	require.NoError(t, err)

	return h
}

func TestNew(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		h, err := New()
		require.NoError(t, err)

		assert.Equal(t, 0, h.Len())
		assert.Equal(t, 0, h.Dims())
		assert.Equal(t, int32(-1), h.MaxLayer())
	})

	t.Run("InvalidM", func(t *testing.T) {
		_, err := New(func(o *Options) { o.M = 1 })
		assert.Error(t, err)
	})

	t.Run("InvalidEF", func(t *testing.T) {
		_, err := New(func(o *Options) { o.EFConstruction = 0 })
		assert.Error(t, err)

		_, err = New(func(o *Options) { o.EFSearch = 0 })
		assert.Error(t, err)
	})
}

func TestIndex_SetParams(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		h := newTestIndex(t)

		require.NoError(t, h.SetParams(8, 100, 30))

		_, err := h.Insert(0, []float32{1, 0})
		require.NoError(t, err)
	})

	t.Run("NonEmpty", func(t *testing.T) {
		h := newTestIndex(t)

		_, err := h.Insert(0, []float32{1, 0})
		require.NoError(t, err)

		assert.Error(t, h.SetParams(8, 100, 30))
	})

	t.Run("Invalid", func(t *testing.T) {
		h := newTestIndex(t)

		assert.Error(t, h.SetParams(1, 100, 30))
		assert.Error(t, h.SetParams(8, 0, 30))
		assert.Error(t, h.SetParams(8, 100, 0))
	})
}

func TestIndex_Search(t *testing.T) {
	t.Run("CompassPoints", func(t *testing.T) {
		h := newTestIndex(t)

		vectors := [][]float32{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
		for i, v := range vectors {
			_, err := h.Insert(uint32(i), v)
			require.NoError(t, err)
		}

		results, err := h.Search([]float32{0.9, 0.1}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, uint32(0), results[0].DocID)
		assert.Equal(t, uint32(1), results[1].DocID)
		assert.Less(t, results[0].Distance, results[1].Distance)
	})

	t.Run("SingleNode", func(t *testing.T) {
		h := newTestIndex(t)

		_, err := h.Insert(7, []float32{0, 1, 0})
		require.NoError(t, err)

		results, err := h.Search([]float32{1, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)

		assert.Equal(t, uint32(7), results[0].DocID)
	})

	t.Run("KBeyondNodeCount", func(t *testing.T) {
		h := newTestIndex(t)

		for i, v := range [][]float32{{1, 0}, {0, 1}, {-1, 0}} {
			_, err := h.Insert(uint32(i), v)
			require.NoError(t, err)
		}

		results, err := h.Search([]float32{1, 0}, 10)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("Empty", func(t *testing.T) {
		h := newTestIndex(t)

		results, err := h.Search([]float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("ZeroK", func(t *testing.T) {
		h := newTestIndex(t)

		_, err := h.Insert(0, []float32{1, 0})
		require.NoError(t, err)

		results, err := h.Search([]float32{1, 0}, 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("AscendingDistances", func(t *testing.T) {
		h := newTestIndex(t)

		rng := testutil.NewRNG(1)
		for i, v := range rng.UnitVectors(100, 8) {
			_, err := h.Insert(uint32(i), v)
			require.NoError(t, err)
		}

		for _, q := range rng.UnitVectors(10, 8) {
			results, err := h.Search(q, 10)
			require.NoError(t, err)
			require.Len(t, results, 10)

			for i := 1; i < len(results); i++ {
				assert.GreaterOrEqual(t, results[i].Distance, results[i-1].Distance)
			}
		}
	})

	t.Run("DistancesWithinCosineRange", func(t *testing.T) {
		h := newTestIndex(t)

		rng := testutil.NewRNG(2)
		for i, v := range rng.UnitVectors(60, 12) {
			_, err := h.Insert(uint32(i), v)
			require.NoError(t, err)
		}

		for _, q := range rng.UnitVectors(5, 12) {
			results, err := h.Search(q, 60)
			require.NoError(t, err)

			for _, r := range results {
				assert.GreaterOrEqual(t, r.Distance, float32(-1e-5))
				assert.LessOrEqual(t, r.Distance, float32(2+1e-5))
			}
		}
	})

	t.Run("FindsIndexedVectors", func(t *testing.T) {
		h := newTestIndex(t)

		rng := testutil.NewRNG(3)
		vectors := rng.UnitVectors(150, 16)

		for i, v := range vectors {
			_, err := h.Insert(uint32(i), v)
			require.NoError(t, err)
		}

		// Querying a vector that is in the graph must surface its own node
		// at distance ~0.
		for i := 0; i < 20; i++ {
			results, err := h.Search(vectors[i], 1)
			require.NoError(t, err)
			require.Len(t, results, 1)

			assert.Equal(t, uint32(i), results[0].DocID)
			assert.InDelta(t, 0, results[0].Distance, 1e-5)
		}
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		h := newTestIndex(t)

		_, err := h.Insert(0, []float32{1, 0, 0})
		require.NoError(t, err)

		_, err = h.Search([]float32{1, 0}, 1)
		require.Error(t, err)

		var dm *ErrDimensionMismatch
		require.True(t, errors.As(err, &dm))
		assert.Equal(t, 3, dm.Expected)
		assert.Equal(t, 2, dm.Actual)
	})
}

func TestIndex_Insert(t *testing.T) {
	t.Run("SequentialArenaIndices", func(t *testing.T) {
		h := newTestIndex(t)

		for i := 0; i < 5; i++ {
			id, err := h.Insert(uint32(100+i), []float32{1, 0})
			require.NoError(t, err)
			assert.Equal(t, uint32(i), id)
		}

		assert.Equal(t, 5, h.Len())
	})

	t.Run("EmptyVector", func(t *testing.T) {
		h := newTestIndex(t)

		_, err := h.Insert(0, nil)
		assert.Error(t, err)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		h := newTestIndex(t)

		_, err := h.Insert(0, []float32{1, 0, 0, 0})
		require.NoError(t, err)

		_, err = h.Insert(1, []float32{1, 0})
		require.Error(t, err)

		var dm *ErrDimensionMismatch
		require.True(t, errors.As(err, &dm))
		assert.Equal(t, 4, dm.Expected)
		assert.Equal(t, 2, dm.Actual)
	})

	t.Run("DuplicateDocIDs", func(t *testing.T) {
		h := newTestIndex(t)

		_, err := h.Insert(9, []float32{1, 0})
		require.NoError(t, err)
		_, err = h.Insert(9, []float32{0, 1})
		require.NoError(t, err)

		assert.Equal(t, 2, h.Len())

		results, err := h.Search([]float32{1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, uint32(9), results[0].DocID)
		assert.Equal(t, uint32(9), results[1].DocID)
	})

	t.Run("DegreeBounds", func(t *testing.T) {
		h := newTestIndex(t, func(o *Options) {
			o.M = 4
		})

		rng := testutil.NewRNG(4)
		for i, v := range rng.UnitVectors(200, 6) {
			_, err := h.Insert(uint32(i), v)
			require.NoError(t, err)
		}

		mmax0 := 2 * 4

		for i := 0; i < h.Len(); i++ {
			node, ok := h.NodeAt(uint32(i))
			require.True(t, ok)

			assert.LessOrEqual(t, node.degree(0), mmax0)

			for l := 1; l <= int(node.MaxLayer); l++ {
				assert.LessOrEqual(t, node.degree(l), 4, "node %d layer %d", i, l)
			}
		}
	})

	t.Run("Layer0AlwaysConnected", func(t *testing.T) {
		h := newTestIndex(t)

		rng := testutil.NewRNG(5)
		for i, v := range rng.UnitVectors(50, 4) {
			_, err := h.Insert(uint32(i), v)
			require.NoError(t, err)
		}

		for i := 0; i < h.Len(); i++ {
			node, ok := h.NodeAt(uint32(i))
			require.True(t, ok)
			assert.NotZero(t, node.degree(0), "node %d isolated at layer 0", i)
		}
	})

	t.Run("EntryPointOnMaxLayer", func(t *testing.T) {
		h := newTestIndex(t)

		rng := testutil.NewRNG(6)
		for i, v := range rng.UnitVectors(80, 4) {
			_, err := h.Insert(uint32(i), v)
			require.NoError(t, err)
		}

		ep, ok := h.NodeAt(h.EntryPoint())
		require.True(t, ok)
		assert.Equal(t, h.MaxLayer(), ep.MaxLayer)
	})
}

func TestIndex_Deterministic(t *testing.T) {
	build := func() *Index {
		seed := int64(99)

		h, err := New(func(o *Options) { o.RandomSeed = &seed })
		require.NoError(t, err)

		rng := testutil.NewRNG(7)
		for i, v := range rng.UnitVectors(60, 8) {
			_, err := h.Insert(uint32(i), v)
			require.NoError(t, err)
		}

		return h
	}

	a := build()
	b := build()

	rng := testutil.NewRNG(8)
	for _, q := range rng.UnitVectors(5, 8) {
		ra, err := a.Search(q, 10)
		require.NoError(t, err)

		rb, err := b.Search(q, 10)
		require.NoError(t, err)

		assert.Equal(t, ra, rb)
	}
}

func TestIndex_Stats(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		h := newTestIndex(t)

		s := h.Stats()
		assert.Equal(t, 0, s.Nodes)
		assert.Equal(t, int32(-1), s.MaxLayer)
		assert.Empty(t, s.LayerCounts)
	})

	t.Run("Populated", func(t *testing.T) {
		h := newTestIndex(t)

		rng := testutil.NewRNG(9)
		for i, v := range rng.UnitVectors(120, 4) {
			_, err := h.Insert(uint32(i), v)
			require.NoError(t, err)
		}

		s := h.Stats()
		assert.Equal(t, 120, s.Nodes)
		assert.Equal(t, 4, s.Dims)
		require.NotEmpty(t, s.LayerCounts)

		// Every node lives on layer 0; layers thin out going up.
		assert.Equal(t, 120, s.LayerCounts[0])
		for l := 1; l < len(s.LayerCounts); l++ {
			assert.LessOrEqual(t, s.LayerCounts[l], s.LayerCounts[l-1])
		}

		assert.Greater(t, s.AvgDegree0, 0.0)
	})
}

func TestIndex_ConcurrentSearch(t *testing.T) {
	h := newTestIndex(t)

	rng := testutil.NewRNG(10)
	for i, v := range rng.UnitVectors(100, 8) {
		_, err := h.Insert(uint32(i), v)
		require.NoError(t, err)
	}

	queries := rng.UnitVectors(20, 8)

	done := make(chan error, 8)

	for g := 0; g < 8; g++ {
		go func() {
			for _, q := range queries {
				results, err := h.Search(q, 5)
				if err != nil {
					done <- err
					return
				}

				if len(results) != 5 {
					done <- fmt.Errorf("got %d results, want 5", len(results))
					return
				}
			}

			done <- nil
		}()
	}

	for g := 0; g < 8; g++ {
		require.NoError(t, <-done)
	}
}
