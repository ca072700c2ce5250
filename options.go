package seekgo

import (
	"github.com/hupe1980/seekgo/index/hnsw"
	"github.com/hupe1980/seekgo/lexical/bm25"
	"github.com/hupe1980/seekgo/persistence"
	"github.com/hupe1980/seekgo/resource"
	"github.com/hupe1980/seekgo/vectorize"
)

// Options holds the tunables of an Engine.
type Options struct {
	// MaxDims caps the TF-IDF vocabulary, and with it the embedding width.
	MaxDims int

	// M is the number of graph links created per node and layer.
	M int

	// EFConstruction is the graph beam width while indexing.
	EFConstruction int

	// EFSearch is the graph beam width while searching.
	EFSearch int

	// K1 and B are the BM25 saturation and length-normalization parameters.
	K1 float32
	B  float32

	// Per-field BM25 boosts.
	NameBoost      float32
	SignatureBoost float32
	DocBoost       float32
	PathBoost      float32

	// RandomSeed pins the graph's layer draws for reproducible builds.
	// Nil seeds from entropy.
	RandomSeed *int64

	// Compression selects the snapshot codec.
	Compression persistence.Compression

	// Controller throttles snapshot IO and bounds background workers.
	// Nil disables all limits.
	Controller *resource.Controller

	// Metrics receives operation metrics. Nil disables collection.
	Metrics MetricsCollector

	// Logger receives operation logs. Nil discards them.
	Logger *Logger
}

// DefaultOptions is the default Engine configuration.
var DefaultOptions = Options{
	MaxDims:        vectorize.DefaultMaxDims,
	M:              hnsw.DefaultM,
	EFConstruction: hnsw.DefaultEFConstruction,
	EFSearch:       hnsw.DefaultEFSearch,
	K1:             bm25.DefaultK1,
	B:              bm25.DefaultB,
	NameBoost:      bm25.DefaultNameBoost,
	SignatureBoost: bm25.DefaultSignatureBoost,
	DocBoost:       bm25.DefaultDocBoost,
	PathBoost:      bm25.DefaultPathBoost,
	Compression:    persistence.CompressionZstd,
}

// Mode selects how Search combines the two indexes.
type Mode uint8

const (
	// ModeHybrid fuses lexical and semantic rankings (default).
	ModeHybrid Mode = iota
	// ModeText ranks with BM25 only.
	ModeText
	// ModeSemantic ranks with the vector index only.
	ModeSemantic
)

func (m Mode) String() string {
	switch m {
	case ModeHybrid:
		return "hybrid"
	case ModeText:
		return "text"
	case ModeSemantic:
		return "semantic"
	default:
		return "unknown"
	}
}

// SearchOptions holds per-query settings.
type SearchOptions struct {
	// Mode selects the ranking strategy.
	Mode Mode

	// Limit is the maximum number of results.
	Limit int
}

// DefaultSearchOptions is the default per-query configuration.
var DefaultSearchOptions = SearchOptions{
	Mode:  ModeHybrid,
	Limit: 10,
}
