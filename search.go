package seekgo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/seekgo/index/hnsw"
)

// Hybrid fusion tunables: reciprocal rank fusion with the lexical ranking
// weighted twice as heavy as the semantic one. Semantic hits only fuse below
// a distance cutoff, tighter when BM25 never matched the document.
const (
	rrfK = 60

	textFusionWeight     = 2.0
	semanticFusionWeight = 1.0

	overlapDistanceCutoff = 0.8
	soloDistanceCutoff    = 0.5
)

// Search ranks documents against a free-text query.
//
// The default is hybrid mode with a limit of 10; override per query:
//
//	results, err := eng.Search(ctx, "parse json", func(o *seekgo.SearchOptions) {
//	    o.Mode = seekgo.ModeSemantic
//	    o.Limit = 25
//	})
func (e *Engine) Search(ctx context.Context, query string, optFns ...func(o *SearchOptions)) ([]SearchResult, error) {
	start := time.Now()

	opts := DefaultSearchOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	results, err := e.search(ctx, query, opts)

	e.metrics.RecordSearch(opts.Mode, opts.Limit, time.Since(start), err)
	e.logger.LogSearch(ctx, opts.Mode, opts.Limit, len(results), err)

	return results, err
}

func (e *Engine) search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if opts.Limit <= 0 {
		return nil, ErrInvalidK
	}

	if !e.built {
		return nil, ErrNotBuilt
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch opts.Mode {
	case ModeText:
		return e.searchText(query, opts.Limit), nil
	case ModeSemantic:
		return e.searchSemantic(query, opts.Limit)
	case ModeHybrid:
		return e.searchHybrid(query, opts.Limit)
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, opts.Mode)
	}
}

func (e *Engine) searchText(query string, limit int) []SearchResult {
	hits := e.text.Search(query, limit)

	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = SearchResult{ID: h.ID, Score: h.Score}
	}

	return results
}

func (e *Engine) searchSemantic(query string, limit int) ([]SearchResult, error) {
	hits, err := e.semanticHits(query, limit)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = SearchResult{ID: h.DocID, Score: 1 - h.Distance}
	}

	return results, nil
}

func (e *Engine) searchHybrid(query string, limit int) ([]SearchResult, error) {
	textHits := e.text.Search(query, limit)

	semHits, err := e.semanticHits(query, limit)
	if err != nil {
		return nil, err
	}

	scores := make(map[uint32]float32, len(textHits)+len(semHits))
	ranked := make(map[uint32]struct{}, len(textHits))

	for i, h := range textHits {
		scores[h.ID] += textFusionWeight / float32(rrfK+i+1)
		ranked[h.ID] = struct{}{}
	}

	for i, h := range semHits {
		cutoff := float32(soloDistanceCutoff)
		if _, ok := ranked[h.DocID]; ok {
			cutoff = overlapDistanceCutoff
		}

		if h.Distance >= cutoff {
			continue
		}

		scores[h.DocID] += semanticFusionWeight / float32(rrfK+i+1)
	}

	results := make([]SearchResult, 0, len(scores))
	for id, score := range scores {
		results = append(results, SearchResult{ID: id, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}

		return results[i].ID < results[j].ID
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// semanticHits vectorizes the query and runs the graph search. A query with
// no vocabulary terms embeds to the zero vector and matches nothing.
func (e *Engine) semanticHits(query string, limit int) ([]hnsw.Result, error) {
	q := e.vec.Vectorize(query)
	if isZero(q) {
		return nil, nil
	}

	hits, err := e.graph.Search(q, limit)
	if err != nil {
		return nil, translateError(err)
	}

	return hits, nil
}
