package seekgo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/seekgo/blobstore"
	"github.com/hupe1980/seekgo/index/hnsw"
	"github.com/hupe1980/seekgo/lexical/bm25"
	"github.com/hupe1980/seekgo/persistence"
	"github.com/hupe1980/seekgo/resource"
	"github.com/hupe1980/seekgo/vectorize"
)

// Snapshot blob names. The fingerprint is written last on save and checked
// first on load, so a torn snapshot never validates.
const (
	snapshotFingerprintBlob = "fingerprint.bin"
	snapshotTextBlob        = "bm25.bin"
	snapshotVectorizerBlob  = "tfidf.bin"
	snapshotGraphBlob       = "hnsw.bin"
)

// Snapshot serializes the built engine into store, tagged with the given
// corpus fingerprint. Component blobs upload concurrently, bounded by the
// configured resource controller.
func (e *Engine) Snapshot(ctx context.Context, store blobstore.Store, fingerprint string) error {
	start := time.Now()

	err := e.snapshot(ctx, store, fingerprint)

	e.metrics.RecordSnapshot(time.Since(start), err)
	e.logger.LogSnapshot(ctx, fingerprint, err)

	return err
}

func (e *Engine) snapshot(ctx context.Context, store blobstore.Store, fingerprint string) error {
	if !e.built {
		return ErrNotBuilt
	}

	components := []struct {
		name string
		src  io.WriterTo
	}{
		{snapshotTextBlob, e.text},
		{snapshotVectorizerBlob, e.vec},
		{snapshotGraphBlob, e.graph},
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, c := range components {
		g.Go(func() error {
			if err := e.opts.Controller.AcquireBackground(gctx); err != nil {
				return err
			}
			defer e.opts.Controller.ReleaseBackground()

			var buf bytes.Buffer

			w := resource.NewRateLimitedWriter(gctx, &buf, e.opts.Controller)
			if _, err := c.src.WriteTo(w); err != nil {
				return fmt.Errorf("serialize %s: %w", c.name, err)
			}

			data, err := persistence.Compress(buf.Bytes(), e.opts.Compression)
			if err != nil {
				return fmt.Errorf("compress %s: %w", c.name, err)
			}

			return store.Put(gctx, c.name, data)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return store.Put(ctx, snapshotFingerprintBlob, []byte(fingerprint))
}

// LoadSnapshot restores the engine from store if it holds a snapshot with a
// matching fingerprint. It returns (false, nil) when the snapshot is absent,
// incomplete, or was built from a different corpus — the caller should
// rebuild from source. Corrupt blobs surface as errors.
//
// All components deserialize into fresh instances; the engine is replaced
// only when every one succeeds. A restored engine serves searches; adding
// documents afterwards is not supported — rebuild from source instead.
func (e *Engine) LoadSnapshot(ctx context.Context, store blobstore.Store, fingerprint string) (bool, error) {
	start := time.Now()

	loaded, err := e.loadSnapshot(ctx, store, fingerprint)

	e.metrics.RecordRestore(loaded, time.Since(start), err)
	e.logger.LogRestore(ctx, fingerprint, loaded, err)

	return loaded, err
}

func (e *Engine) loadSnapshot(ctx context.Context, store blobstore.Store, fingerprint string) (bool, error) {
	stored, err := e.readBlob(ctx, store, snapshotFingerprintBlob)
	if errors.Is(err, blobstore.ErrNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	if string(stored) != fingerprint {
		return false, nil
	}

	text := bm25.New()
	vec := vectorize.New(e.opts.MaxDims)

	graph, err := hnsw.New()
	if err != nil {
		return false, err
	}

	components := []struct {
		name string
		dst  io.ReaderFrom
	}{
		{snapshotTextBlob, text},
		{snapshotVectorizerBlob, vec},
		{snapshotGraphBlob, graph},
	}

	for _, c := range components {
		err := e.loadComponent(ctx, store, c.name, c.dst)
		if errors.Is(err, blobstore.ErrNotFound) {
			return false, nil
		}

		if err != nil {
			return false, err
		}
	}

	e.text = text
	e.vec = vec
	e.graph = graph
	e.docs = nil
	e.built = true

	return true, nil
}

// loadComponent keeps the blob open until decoding finishes: ReadAll may
// return mapping-backed bytes that are only valid while the blob is open.
func (e *Engine) loadComponent(ctx context.Context, store blobstore.Store, name string, dst io.ReaderFrom) error {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return err
	}
	defer blob.Close()

	raw, err := blobstore.ReadAll(blob)
	if err != nil {
		return err
	}

	rc := e.opts.Controller

	if err := rc.AcquireMemory(int64(len(raw))); err != nil {
		return err
	}
	defer rc.ReleaseMemory(int64(len(raw)))

	data, err := persistence.Decompress(raw)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", name, err)
	}

	r := resource.NewRateLimitedReader(ctx, bytes.NewReader(data), rc)
	if _, err := dst.ReadFrom(r); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}

	return nil
}

func (e *Engine) readBlob(ctx context.Context, store blobstore.Store, name string) ([]byte, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	data, err := blobstore.ReadAll(blob)
	if err != nil {
		return nil, err
	}

	// The slice may be backed by the blob's mapping; copy before Close.
	out := make([]byte, len(data))
	copy(out, data)

	return out, nil
}
