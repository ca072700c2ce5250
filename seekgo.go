// Package seekgo provides an embedded hybrid search engine for code and
// documentation corpora.
//
// Seekgo combines three independent indexes over the same documents:
//
//   - A multi-field Okapi BM25 index ranking name, signature, doc text, and
//     path with per-field boosts
//   - A TF-IDF vectorizer turning each document into an L2-normalized
//     embedding over its most discriminative terms
//   - An HNSW graph answering approximate nearest-neighbor queries over
//     those embeddings
//
// Searches run in three modes: ModeText (BM25 only), ModeSemantic (vector
// only), and ModeHybrid (both, merged by reciprocal rank fusion).
//
// # Quick Start
//
//	eng := seekgo.New()
//
//	eng.Add(seekgo.Document{
//	    ID:        1,
//	    Name:      "parse_json",
//	    Signature: "pub func parse_json(input: Str) -> Outcome[JsonValue, JsonError]",
//	    Doc:       "Parses a JSON string into a value tree.",
//	    Path:      "std::json",
//	})
//	// ... more documents ...
//
//	if err := eng.Build(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	results, err := eng.Search(ctx, "parse json input")
//	for _, r := range results {
//	    fmt.Println(r.ID, r.Score)
//	}
//
// # Snapshots
//
// A built engine serializes into a blobstore.Store keyed by a caller-supplied
// corpus fingerprint, so later processes restore the build instead of
// repeating it:
//
//	store := blobstore.NewLocalStore("./cache")
//
//	loaded, err := eng.LoadSnapshot(ctx, store, fingerprint)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !loaded {
//	    // feed documents, Build, then:
//	    if err := eng.Snapshot(ctx, store, fingerprint); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Concurrency
//
// Add, Build, Snapshot, and LoadSnapshot are single-writer and must not run
// concurrently with each other or with Search. Once Build (or a successful
// LoadSnapshot) returns, any number of goroutines may call Search
// concurrently.
package seekgo

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/seekgo/index/hnsw"
	"github.com/hupe1980/seekgo/lexical/bm25"
	"github.com/hupe1980/seekgo/vectorize"
)

// Document is one indexable item: a named code entity with its signature,
// documentation text, and file path.
type Document struct {
	ID        uint32
	Name      string
	Signature string
	Doc       string
	Path      string
}

// SearchResult is one ranked hit.
type SearchResult struct {
	ID    uint32
	Score float32
}

// Engine coordinates the BM25 index, the TF-IDF vectorizer, and the HNSW
// graph over one document corpus.
type Engine struct {
	opts    Options
	logger  *Logger
	metrics MetricsCollector

	text  *bm25.Index
	vec   *vectorize.Vectorizer
	graph *hnsw.Index

	docs  []Document
	built bool
}

// New creates an empty engine.
func New(optFns ...func(o *Options)) *Engine {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = NoopLogger()
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}

	text := bm25.New(func(o *bm25.Options) {
		o.K1 = opts.K1
		o.B = opts.B
		o.NameBoost = opts.NameBoost
		o.SignatureBoost = opts.SignatureBoost
		o.DocBoost = opts.DocBoost
		o.PathBoost = opts.PathBoost
	})

	return &Engine{
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		text:    text,
	}
}

// Add queues a document for indexing. The engine is unbuilt afterwards
// until the next Build.
func (e *Engine) Add(doc Document) {
	e.text.AddDocument(doc.ID, doc.Name, doc.Signature, doc.Doc, doc.Path)
	e.docs = append(e.docs, doc)
	e.built = false
}

// Build finalizes the BM25 statistics and constructs the vector side
// (vocabulary, embeddings, graph) from every document added so far. The two
// halves build concurrently. A second Build after further Adds rebuilds the
// vector side from scratch; BM25 recomputes its statistics in place.
func (e *Engine) Build(ctx context.Context) error {
	start := time.Now()

	err := e.build(ctx)

	e.metrics.RecordBuild(len(e.docs), time.Since(start), err)
	e.logger.LogBuild(ctx, len(e.docs), e.Dims(), err)

	return err
}

func (e *Engine) build(ctx context.Context) error {
	vec := vectorize.New(e.opts.MaxDims)

	graph, err := hnsw.New(func(o *hnsw.Options) {
		o.M = e.opts.M
		o.EFConstruction = e.opts.EFConstruction
		o.EFSearch = e.opts.EFSearch
		o.RandomSeed = e.opts.RandomSeed
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}

		e.text.Build()

		return nil
	})

	g.Go(func() error {
		for _, d := range e.docs {
			if err := gctx.Err(); err != nil {
				return err
			}

			vec.AddDocument(d.ID, combinedText(d))
		}

		vec.Build()

		for _, d := range e.docs {
			if err := gctx.Err(); err != nil {
				return err
			}

			v := vec.Vectorize(combinedText(d))
			if isZero(v) {
				continue
			}

			if _, err := graph.Insert(d.ID, v); err != nil {
				return translateError(err)
			}
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	e.vec = vec
	e.graph = graph
	e.built = true

	return nil
}

// Len returns the number of indexed documents.
func (e *Engine) Len() int {
	return e.text.Len()
}

// Built reports whether the engine is ready to search.
func (e *Engine) Built() bool {
	return e.built
}

// Dims returns the embedding width, 0 before the first Build.
func (e *Engine) Dims() int {
	if e.vec == nil {
		return 0
	}

	return e.vec.Dims()
}

// combinedText is the vectorization view of a document: all four fields
// joined, so the embedding reflects the same terms BM25 sees.
func combinedText(d Document) string {
	return d.Name + " " + d.Signature + " " + d.Doc + " " + d.Path
}

// isZero reports whether v has no non-zero component. Vectorize returns
// such a vector for text entirely outside the vocabulary.
func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}

	return true
}
