package persistence

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	// Repetitive payload so lz4/zstd actually compress.
	payload := bytes.Repeat([]byte("term frequency inverse document frequency "), 200)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			packed, err := Compress(payload, c)
			require.NoError(t, err)

			if c != CompressionNone {
				assert.Less(t, len(packed), len(payload))
			}

			got, err := Decompress(packed)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestCodec_IncompressibleFallsBack(t *testing.T) {
	// Tiny high-entropy payload: compression cannot shrink it, so the codec
	// stores it raw and decompression still round-trips.
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x42}

	for _, c := range []Compression{CompressionLZ4, CompressionZstd} {
		packed, err := Compress(payload, c)
		require.NoError(t, err)

		got, err := Decompress(packed)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}
}

func TestCodec_EmptyPayload(t *testing.T) {
	packed, err := Compress(nil, CompressionZstd)
	require.NoError(t, err)

	got, err := Decompress(packed)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCodec_Errors(t *testing.T) {
	t.Run("UnknownCompressOn", func(t *testing.T) {
		_, err := Compress([]byte("x"), Compression(77))
		assert.ErrorIs(t, err, ErrUnknownCodec)
	})

	t.Run("ShortHeader", func(t *testing.T) {
		_, err := Decompress([]byte{1, 2, 3})
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("UnknownCodecTag", func(t *testing.T) {
		packed, err := Compress([]byte("payload"), CompressionNone)
		require.NoError(t, err)
		packed[0] = 99
		_, err = Decompress(packed)
		assert.ErrorIs(t, err, ErrUnknownCodec)
	})

	t.Run("CorruptZstd", func(t *testing.T) {
		packed, err := Compress(bytes.Repeat([]byte("abc"), 500), CompressionZstd)
		require.NoError(t, err)
		// Flip bytes in the compressed payload.
		for i := codecHeaderSize; i < len(packed); i += 2 {
			packed[i] ^= 0xFF
		}
		_, err = Decompress(packed)
		assert.Error(t, err)
	})
}
