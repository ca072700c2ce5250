package vectorize

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/seekgo/persistence"
)

func TestVectorizer_BinaryRoundTrip(t *testing.T) {
	t.Run("VectorsSurvive", func(t *testing.T) {
		v := newCodeVectorizer(t)

		data, err := v.MarshalBinary()
		require.NoError(t, err)

		restored := New(DefaultMaxDims)
		require.NoError(t, restored.UnmarshalBinary(data))

		assert.Equal(t, v.Dims(), restored.Dims())
		assert.Equal(t, v.MaxDims(), restored.MaxDims())
		assert.Equal(t, v.TotalDocs(), restored.TotalDocs())

		for _, text := range []string{"parse json", "indented text", "arithmetic expression", "zebra"} {
			want := v.Vectorize(text)
			got := restored.Vectorize(text)

			require.Len(t, got, len(want), "text %q", text)

			for i := range want {
				assert.Equal(t, want[i], got[i], "text %q dim %d", text, i)
			}
		}
	})

	t.Run("DeterministicBytes", func(t *testing.T) {
		v := newCodeVectorizer(t)

		first, err := v.MarshalBinary()
		require.NoError(t, err)

		second, err := v.MarshalBinary()
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("EmptyVectorizer", func(t *testing.T) {
		v := New(32)
		v.Build()

		data, err := v.MarshalBinary()
		require.NoError(t, err)

		restored := New(DefaultMaxDims)
		require.NoError(t, restored.UnmarshalBinary(data))

		assert.Equal(t, 32, restored.MaxDims())
		assert.Equal(t, 0, restored.Dims())
		assert.True(t, restored.Built())
	})
}

func TestVectorizer_ReadFromErrors(t *testing.T) {
	t.Run("WrongMagic", func(t *testing.T) {
		var buf bytes.Buffer

		bw := persistence.NewWriter(&buf)
		require.NoError(t, bw.WriteHeader(persistence.MagicBM25))

		v := New(DefaultMaxDims)
		_, err := v.ReadFrom(&buf)
		assert.ErrorIs(t, err, persistence.ErrInvalidMagic)
	})

	t.Run("Truncated", func(t *testing.T) {
		src := newCodeVectorizer(t)

		data, err := src.MarshalBinary()
		require.NoError(t, err)

		v := New(DefaultMaxDims)
		_, err = v.ReadFrom(bytes.NewReader(data[:len(data)/3]))
		assert.Error(t, err)
	})

	t.Run("ReceiverUntouchedOnError", func(t *testing.T) {
		src := newCodeVectorizer(t)

		data, err := src.MarshalBinary()
		require.NoError(t, err)

		v := New(8)
		v.AddDocument(0, "alpha beta gamma")
		v.Build()

		dimsBefore := v.Dims()

		_, err = v.ReadFrom(bytes.NewReader(data[:12]))
		require.Error(t, err)

		assert.Equal(t, dimsBefore, v.Dims())
		assert.NotNil(t, v.Vectorize("alpha"))
	})

	t.Run("DimOutOfRange", func(t *testing.T) {
		// Hand-build a stream whose term map points past the weight array.
		var buf bytes.Buffer

		bw := persistence.NewWriter(&buf)
		require.NoError(t, bw.WriteHeader(persistence.MagicTFIDF))
		require.NoError(t, bw.WriteUint32(8))      // maxDims
		require.NoError(t, bw.WriteUint32(1))      // dims
		require.NoError(t, bw.WriteBool(true))     // built
		require.NoError(t, bw.WriteUint32(1))      // totalDocs
		require.NoError(t, bw.WriteUint32(1))      // term count
		require.NoError(t, bw.WriteString("term")) // term
		require.NoError(t, bw.WriteUint32(5))      // dimension out of range

		v := New(DefaultMaxDims)
		_, err := v.ReadFrom(&buf)
		assert.ErrorIs(t, err, persistence.ErrCorrupt)
	})
}

func TestVectorizer_SaveLoadFile(t *testing.T) {
	v := newCodeVectorizer(t)

	filename := filepath.Join(t.TempDir(), "vocab.tfidf")
	require.NoError(t, v.SaveToFile(filename))

	restored, err := LoadFromFile(filename)
	require.NoError(t, err)

	want := v.Vectorize("parse json")
	got := restored.Vectorize("parse json")

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i], got[i])
	}
}
