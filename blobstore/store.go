// Package blobstore abstracts where snapshot blobs live.
//
// A Store holds named immutable blobs. Engines write complete snapshot files
// with Put and read them back with Open; blobs are never modified in place.
// Implementations exist for memory (tests), the local filesystem (mmap-backed
// reads), and S3-compatible object stores.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return errors satisfying errors.Is(err, ErrNotFound); the
// default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// Store is a named collection of immutable blobs.
type Store interface {
	// Put writes a complete blob under the given name, replacing any
	// existing blob atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.ReaderAt
	io.Closer

	// Size returns the size of the blob in bytes.
	Size() int64
}

// Mappable is an optional interface for Blobs whose contents are available
// as a byte slice without copying.
type Mappable interface {
	// Bytes returns the underlying byte slice, valid until the Blob is
	// closed.
	Bytes() ([]byte, error)
}

// ReadAll returns the full contents of a blob. Mappable blobs are read
// without copying; the returned slice is then only valid until the blob is
// closed.
func ReadAll(b Blob) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		return m.Bytes()
	}

	data := make([]byte, b.Size())
	if _, err := io.ReadFull(io.NewSectionReader(b, 0, b.Size()), data); err != nil {
		return nil, err
	}

	return data, nil
}
