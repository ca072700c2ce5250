package bm25

import (
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/seekgo/tokenize"
)

// Field identifies one of the scored document fields.
type Field int

const (
	FieldName Field = iota
	FieldSignature
	FieldDoc
	FieldPath

	numFields = 4
)

// Default ranking parameters.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75

	DefaultNameBoost      = 3.0
	DefaultSignatureBoost = 1.5
	DefaultDocBoost       = 1.0
	DefaultPathBoost      = 0.5
)

// Result is a single ranked hit.
type Result struct {
	// ID is the caller-assigned document ID.
	ID uint32
	// Score is the boost-weighted BM25 score. Always > 0.
	Score float32
}

// Options configures the ranking function of an index.
type Options struct {
	// K1 controls term-frequency saturation.
	K1 float32
	// B controls document-length normalization.
	B float32

	// Per-field score multipliers.
	NameBoost      float32
	SignatureBoost float32
	DocBoost       float32
	PathBoost      float32

	// Tokenizer splits field text and queries into terms.
	Tokenizer tokenize.Func
}

// DefaultOptions is the default configuration for an index.
var DefaultOptions = Options{
	K1:             DefaultK1,
	B:              DefaultB,
	NameBoost:      DefaultNameBoost,
	SignatureBoost: DefaultSignatureBoost,
	DocBoost:       DefaultDocBoost,
	PathBoost:      DefaultPathBoost,
	Tokenizer:      tokenize.Tokenize,
}

// document holds the per-field term statistics of one indexed document.
type document struct {
	id     uint32
	tf     [numFields]map[string]uint32
	length [numFields]uint32
}

// Index is a multi-field BM25 index. The zero value is not usable; create
// instances with New.
type Index struct {
	opts Options

	// docs holds documents in insertion order. Postings reference documents
	// by their position in this slice, so ties in Search resolve to
	// insertion order.
	docs []document

	// postings maps a term to the set of positions of documents containing
	// it in any field.
	postings map[string]*roaring.Bitmap

	// docFreq counts, per term, the documents containing it in at least one
	// field. A term occurring in several fields of one document counts once.
	docFreq map[string]uint32

	// Derived by Build.
	idf    map[string]float32
	avgLen [numFields]float32
	built  bool
}

// New creates a new empty index.
func New(optFns ...func(o *Options)) *Index {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Tokenizer == nil {
		opts.Tokenizer = tokenize.Tokenize
	}

	return &Index{
		opts:     opts,
		postings: make(map[string]*roaring.Bitmap),
		docFreq:  make(map[string]uint32),
	}
}

// AddDocument indexes a document under the given ID. IDs are opaque to the
// index and are echoed back in search results; adding two documents with the
// same ID yields two independent entries. The index becomes stale until the
// next Build.
func (idx *Index) AddDocument(id uint32, name, signature, doc, path string) {
	fields := [numFields]string{name, signature, doc, path}

	d := document{id: id}
	seen := make(map[string]struct{})

	for f := 0; f < numFields; f++ {
		terms := idx.opts.Tokenizer(fields[f])

		tf := make(map[string]uint32, len(terms))
		for _, t := range terms {
			tf[t]++
		}

		d.tf[f] = tf
		d.length[f] = uint32(len(terms))

		for t := range tf {
			seen[t] = struct{}{}
		}
	}

	pos := uint32(len(idx.docs))
	idx.docs = append(idx.docs, d)

	for t := range seen {
		idx.docFreq[t]++

		bm, ok := idx.postings[t]
		if !ok {
			bm = roaring.New()
			idx.postings[t] = bm
		}

		bm.Add(pos)
	}

	idx.built = false
}

// Build computes average field lengths and IDF weights from the documents
// added so far. It must run before Search and after the last AddDocument.
func (idx *Index) Build() {
	n := float64(len(idx.docs))

	var totals [numFields]float64

	for i := range idx.docs {
		for f := 0; f < numFields; f++ {
			totals[f] += float64(idx.docs[i].length[f])
		}
	}

	for f := 0; f < numFields; f++ {
		if n > 0 {
			idx.avgLen[f] = float32(totals[f] / n)
		} else {
			idx.avgLen[f] = 0
		}
	}

	idx.idf = make(map[string]float32, len(idx.docFreq))
	for t, df := range idx.docFreq {
		idx.idf[t] = float32(math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1))
	}

	idx.built = true
}

// Search ranks indexed documents against the query and returns up to limit
// results ordered by descending score. Documents scoring zero or below are
// omitted. Ties keep insertion order. It returns nil if the index is empty,
// not built, or the query tokenizes to nothing.
func (idx *Index) Search(query string, limit int) []Result {
	if !idx.built || len(idx.docs) == 0 || limit <= 0 {
		return nil
	}

	terms := idx.opts.Tokenizer(query)
	if len(terms) == 0 {
		return nil
	}

	// Only documents sharing at least one term with the query can score
	// non-zero, so candidates come from the union of term postings.
	var candidates *roaring.Bitmap

	for _, t := range terms {
		if bm, ok := idx.postings[t]; ok {
			if candidates == nil {
				candidates = bm.Clone()
			} else {
				candidates.Or(bm)
			}
		}
	}

	if candidates == nil {
		return nil
	}

	boosts := [numFields]float32{
		idx.opts.NameBoost,
		idx.opts.SignatureBoost,
		idx.opts.DocBoost,
		idx.opts.PathBoost,
	}

	results := make([]Result, 0, candidates.GetCardinality())

	it := candidates.Iterator()
	for it.HasNext() {
		pos := it.Next()
		d := &idx.docs[pos]

		var score float32
		for f := 0; f < numFields; f++ {
			score += boosts[f] * idx.scoreField(d, f, terms)
		}

		if score > 0 {
			results = append(results, Result{ID: d.id, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results
}

// scoreField computes the unboosted BM25 score of one field against the
// query terms. Repeated query terms contribute once per occurrence.
func (idx *Index) scoreField(d *document, f int, terms []string) float32 {
	avg := float64(idx.avgLen[f])
	if avg <= 0 {
		avg = 1
	}

	k1 := float64(idx.opts.K1)
	b := float64(idx.opts.B)
	norm := 1 - b + b*float64(d.length[f])/avg

	var sum float64

	for _, t := range terms {
		tf := float64(d.tf[f][t])
		if tf == 0 {
			continue
		}

		sum += float64(idx.idf[t]) * tf * (k1 + 1) / (tf + k1*norm)
	}

	return float32(sum)
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.docs)
}

// Built reports whether the index statistics are current.
func (idx *Index) Built() bool {
	return idx.built
}

// AvgFieldLen returns the average token count of the given field, as
// computed by the last Build.
func (idx *Index) AvgFieldLen(f Field) float32 {
	if f < 0 || int(f) >= numFields {
		return 0
	}

	return idx.avgLen[f]
}

// Vocabulary returns all indexed terms in lexicographic order.
func (idx *Index) Vocabulary() []string {
	terms := make([]string, 0, len(idx.docFreq))
	for t := range idx.docFreq {
		terms = append(terms, t)
	}

	sort.Strings(terms)

	return terms
}

// DocFreq returns the number of documents containing the term in any field.
func (idx *Index) DocFreq(term string) uint32 {
	return idx.docFreq[term]
}
