// Package bm25 implements a multi-field Okapi BM25 text index.
//
// Documents carry four fields (name, signature, doc, path), each scored
// independently and combined under per-field boosts. The index is built in
// two phases: AddDocument accumulates term statistics, Build derives the
// corpus-wide averages and IDF table. Adding documents after Build marks the
// index stale until Build runs again.
//
// Search and AddDocument never return errors; degenerate inputs (empty
// corpus, unbuilt index, empty query) produce empty results. The build and
// add phase is single-writer; once built, concurrent Search calls are safe.
package bm25
