// Package vectorize converts text into fixed-dimension TF-IDF vectors.
//
// A Vectorizer learns its vocabulary from a corpus in two phases: AddDocument
// collects document frequencies, Build selects the most discriminative terms
// as vector dimensions. Vectorize then maps arbitrary text onto those
// dimensions as an L2-normalized dense vector, suitable for cosine-style
// nearest-neighbor indexes.
package vectorize

import (
	"math"
	"sort"

	"github.com/hupe1980/seekgo/distance"
	"github.com/hupe1980/seekgo/tokenize"
)

// DefaultMaxDims is the default vocabulary size cap.
const DefaultMaxDims = 512

// Options configures a Vectorizer.
type Options struct {
	// Tokenizer splits documents and queries into terms.
	Tokenizer tokenize.Func
}

// DefaultOptions is the default configuration for a Vectorizer.
var DefaultOptions = Options{
	Tokenizer: tokenize.Tokenize,
}

// Vectorizer learns a capped TF-IDF vocabulary and produces dense vectors
// over it. Create instances with New; the zero value is not usable.
type Vectorizer struct {
	opts    Options
	maxDims int

	// docFreq counts, per term, the documents containing it.
	docFreq   map[string]uint32
	totalDocs uint32

	// Derived by Build. termToDim assigns each vocabulary term its
	// dimension; idfWeights[dim] is that term's IDF.
	termToDim  map[string]uint32
	idfWeights []float32
	built      bool
}

// New creates a Vectorizer whose vocabulary holds at most maxDims terms.
// Values < 1 fall back to DefaultMaxDims.
func New(maxDims int, optFns ...func(o *Options)) *Vectorizer {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Tokenizer == nil {
		opts.Tokenizer = tokenize.Tokenize
	}

	if maxDims < 1 {
		maxDims = DefaultMaxDims
	}

	return &Vectorizer{
		opts:    opts,
		maxDims: maxDims,
		docFreq: make(map[string]uint32),
	}
}

// AddDocument tokenizes the text and folds it into the corpus statistics.
// The document ID is accepted for call-site symmetry with the other indexes
// but not stored; vectorizing is stateless per document. The vectorizer
// becomes stale until Build runs again.
func (v *Vectorizer) AddDocument(_ uint32, text string) {
	terms := v.opts.Tokenizer(text)

	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}

		seen[t] = struct{}{}
		v.docFreq[t]++
	}

	v.totalDocs++
	v.built = false
}

// Build freezes the vocabulary: it computes a smoothed IDF for every
// observed term, keeps the maxDims terms with the highest IDF (ties broken
// lexicographically), and assigns each a dimension.
func (v *Vectorizer) Build() {
	type termIDF struct {
		term string
		idf  float32
	}

	n := float64(v.totalDocs)

	candidates := make([]termIDF, 0, len(v.docFreq))
	for t, df := range v.docFreq {
		idf := float32(math.Log((n+1)/(float64(df)+1)) + 1)
		candidates = append(candidates, termIDF{term: t, idf: idf})
	}

	// Rarest terms carry the most signal, so they win the dimension slots.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].idf != candidates[j].idf {
			return candidates[i].idf > candidates[j].idf
		}

		return candidates[i].term < candidates[j].term
	})

	if len(candidates) > v.maxDims {
		candidates = candidates[:v.maxDims]
	}

	v.termToDim = make(map[string]uint32, len(candidates))
	v.idfWeights = make([]float32, len(candidates))

	for dim, c := range candidates {
		v.termToDim[c.term] = uint32(dim)
		v.idfWeights[dim] = c.idf
	}

	v.built = true
}

// Vectorize maps the text onto the learned vocabulary and returns an
// L2-normalized vector of Dims() components. Terms outside the vocabulary
// contribute nothing; text sharing no terms with the vocabulary yields the
// zero vector. It returns nil before Build or when the vocabulary is empty.
func (v *Vectorizer) Vectorize(text string) []float32 {
	if !v.built || len(v.idfWeights) == 0 {
		return nil
	}

	terms := v.opts.Tokenizer(text)

	counts := make(map[string]uint32, len(terms))
	for _, t := range terms {
		counts[t]++
	}

	vec := make([]float32, len(v.idfWeights))

	for t, count := range counts {
		dim, ok := v.termToDim[t]
		if !ok {
			continue
		}

		vec[dim] = float32(1+math.Log(float64(count))) * v.idfWeights[dim]
	}

	distance.NormalizeL2InPlace(vec)

	return vec
}

// Dims returns the size of vectors produced by Vectorize. Zero before Build.
func (v *Vectorizer) Dims() int {
	return len(v.idfWeights)
}

// MaxDims returns the configured vocabulary cap.
func (v *Vectorizer) MaxDims() int {
	return v.maxDims
}

// Built reports whether the vocabulary is current.
func (v *Vectorizer) Built() bool {
	return v.built
}

// TotalDocs returns the number of documents folded into the statistics.
func (v *Vectorizer) TotalDocs() uint32 {
	return v.totalDocs
}

// IDF returns the IDF weight of a vocabulary term and whether the term is
// part of the vocabulary.
func (v *Vectorizer) IDF(term string) (float32, bool) {
	dim, ok := v.termToDim[term]
	if !ok {
		return 0, false
	}

	return v.idfWeights[dim], true
}
