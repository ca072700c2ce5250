package minio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/seekgo/blobstore"
)

// TestIntegrationMinioStore requires a running MinIO instance on
// localhost:9000 with the default credentials. Skipped otherwise.
func TestIntegrationMinioStore(t *testing.T) {
	ctx := context.Background()

	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	bucket := "test-seekgo"

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)

	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, fmt.Sprintf("test-%d/", time.Now().UnixNano()))

	t.Cleanup(func() {
		names, err := store.List(ctx, "")
		require.NoError(t, err)

		for _, name := range names {
			require.NoError(t, store.Delete(ctx, name))
		}
	})

	payload := []byte("0123456789")

	t.Run("PutOpenRoundTrip", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "snap/data.bin", payload))

		blob, err := store.Open(ctx, "snap/data.bin")
		require.NoError(t, err)

		defer blob.Close()

		assert.Equal(t, int64(len(payload)), blob.Size())

		data, err := blobstore.ReadAll(blob)
		require.NoError(t, err)
		assert.Equal(t, payload, data)
	})

	t.Run("ReadAtRange", func(t *testing.T) {
		blob, err := store.Open(ctx, "snap/data.bin")
		require.NoError(t, err)

		defer blob.Close()

		buf := make([]byte, 4)

		n, err := blob.ReadAt(buf, 2)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.Equal(t, []byte("2345"), buf)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "snap/other.bin", []byte("x")))

		names, err := store.List(ctx, "snap/")
		require.NoError(t, err)
		assert.Equal(t, []string{"snap/data.bin", "snap/other.bin"}, names)
	})

	t.Run("OpenMissing", func(t *testing.T) {
		_, err := store.Open(ctx, "snap/missing.bin")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "snap/tmp.bin", []byte("y")))
		require.NoError(t, store.Delete(ctx, "snap/tmp.bin"))
		require.NoError(t, store.Delete(ctx, "snap/tmp.bin"))

		_, err := store.Open(ctx, "snap/tmp.bin")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})
}
