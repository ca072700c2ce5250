package persistence

import "errors"

// Magic numbers identifying the three index formats. Each is written as a
// little-endian u32 followed by a u32 format version.
const (
	// MagicBM25 identifies serialized BM25 indexes (ASCII "BM25").
	MagicBM25 = 0x424D3235
	// MagicHNSW identifies serialized HNSW graphs (ASCII "HNSW").
	MagicHNSW = 0x484E5357
	// MagicTFIDF identifies serialized TF-IDF vocabularies (ASCII "TFID").
	MagicTFIDF = 0x54464944

	// Version is the current format version for all three formats.
	Version = 1
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrCorrupt        = errors.New("corrupt data")
	ErrUnknownCodec   = errors.New("unknown compression codec")
)

// MaxElems caps any single length prefix read from untrusted bytes, so a
// corrupt count fails with ErrCorrupt instead of a runaway allocation.
const MaxElems = 1 << 28
