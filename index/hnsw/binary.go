package hnsw

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"

	"github.com/hupe1980/seekgo/internal/searcher"
	"github.com/hupe1980/seekgo/internal/visited"
	"github.com/hupe1980/seekgo/persistence"
)

// maxLayerBound rejects absurd layer values from corrupt streams before
// they drive allocation loops.
const maxLayerBound = 1 << 16

// WriteTo serializes the graph to w and returns the number of bytes
// written. RNG state is not part of the stream.
func (h *Index) WriteTo(w io.Writer) (int64, error) {
	bw := persistence.NewWriter(w)

	if err := bw.WriteHeader(persistence.MagicHNSW); err != nil {
		return bw.Count(), err
	}

	for _, v := range []uint32{
		uint32(h.dims),
		uint32(h.opts.M),
		uint32(h.mmax0),
		uint32(h.opts.EFConstruction),
		uint32(h.opts.EFSearch),
	} {
		if err := bw.WriteUint32(v); err != nil {
			return bw.Count(), err
		}
	}

	if err := bw.WriteFloat64(h.levelMult); err != nil {
		return bw.Count(), err
	}

	if err := bw.WriteUint32(h.entryPoint); err != nil {
		return bw.Count(), err
	}

	if err := bw.WriteInt32(h.maxLayer); err != nil {
		return bw.Count(), err
	}

	if err := bw.WriteUint32(uint32(len(h.nodes))); err != nil {
		return bw.Count(), err
	}

	for i := range h.nodes {
		node := &h.nodes[i]

		if err := bw.WriteUint32(node.DocID); err != nil {
			return bw.Count(), err
		}

		if err := bw.WriteInt32(node.MaxLayer); err != nil {
			return bw.Count(), err
		}

		for _, conns := range node.Connections {
			if err := bw.WriteUint32Slice(conns); err != nil {
				return bw.Count(), err
			}
		}

		if err := bw.WriteFloat32Slice(node.Vector); err != nil {
			return bw.Count(), err
		}
	}

	return bw.Count(), nil
}

// ReadFrom restores the graph from r. The receiver is only modified on full
// success; short, corrupt, or inconsistent streams leave it untouched.
func (h *Index) ReadFrom(r io.Reader) (int64, error) {
	br := persistence.NewReader(r)

	if err := br.ReadHeader(persistence.MagicHNSW); err != nil {
		return br.Count(), err
	}

	var header [5]uint32

	for i := range header {
		v, err := br.ReadUint32()
		if err != nil {
			return br.Count(), err
		}

		header[i] = v
	}

	dims, m, mmax0, efConstruction, efSearch := header[0], header[1], header[2], header[3], header[4]

	if m < minimumM || efConstruction < 1 || efSearch < 1 {
		return br.Count(), fmt.Errorf("%w: invalid graph parameters m=%d efc=%d efs=%d", persistence.ErrCorrupt, m, efConstruction, efSearch)
	}

	levelMult, err := br.ReadFloat64()
	if err != nil {
		return br.Count(), err
	}

	entryPoint, err := br.ReadUint32()
	if err != nil {
		return br.Count(), err
	}

	maxLayer, err := br.ReadInt32()
	if err != nil {
		return br.Count(), err
	}

	if maxLayer < -1 || maxLayer > maxLayerBound {
		return br.Count(), fmt.Errorf("%w: max layer %d out of range", persistence.ErrCorrupt, maxLayer)
	}

	nodeCount, err := br.ReadUint32()
	if err != nil {
		return br.Count(), err
	}

	if uint64(nodeCount) > persistence.MaxElems {
		return br.Count(), fmt.Errorf("%w: node count %d exceeds limit", persistence.ErrCorrupt, nodeCount)
	}

	if nodeCount > 0 && entryPoint >= nodeCount {
		return br.Count(), fmt.Errorf("%w: entry point %d out of range for %d nodes", persistence.ErrCorrupt, entryPoint, nodeCount)
	}

	nodes := make([]Node, 0, nodeCount)

	for i := uint32(0); i < nodeCount; i++ {
		var node Node

		node.DocID, err = br.ReadUint32()
		if err != nil {
			return br.Count(), err
		}

		node.MaxLayer, err = br.ReadInt32()
		if err != nil {
			return br.Count(), err
		}

		if node.MaxLayer < 0 || node.MaxLayer > maxLayer {
			return br.Count(), fmt.Errorf("%w: node %d layer %d out of range", persistence.ErrCorrupt, i, node.MaxLayer)
		}

		node.Connections = make([][]uint32, node.MaxLayer+1)

		for l := range node.Connections {
			conns, err := br.ReadUint32Slice()
			if err != nil {
				return br.Count(), err
			}

			for _, c := range conns {
				if c >= nodeCount {
					return br.Count(), fmt.Errorf("%w: node %d layer %d references node %d of %d", persistence.ErrCorrupt, i, l, c, nodeCount)
				}
			}

			node.Connections[l] = conns
		}

		node.Vector, err = br.ReadFloat32Slice()
		if err != nil {
			return br.Count(), err
		}

		if uint32(len(node.Vector)) != dims {
			return br.Count(), fmt.Errorf("%w: node %d vector has %d dims, want %d", persistence.ErrCorrupt, i, len(node.Vector), dims)
		}

		nodes = append(nodes, node)
	}

	h.opts.M = int(m)
	h.opts.EFConstruction = int(efConstruction)
	h.opts.EFSearch = int(efSearch)
	h.dims = int(dims)
	h.mmax0 = int(mmax0)
	h.levelMult = levelMult
	h.entryPoint = entryPoint
	h.maxLayer = maxLayer
	h.nodes = nodes
	h.ensureRuntime()

	return br.Count(), nil
}

// ensureRuntime initializes the RNG and scratch pool when the graph was
// deserialized into a zero-value receiver.
func (h *Index) ensureRuntime() {
	if h.rng == nil {
		if h.opts.RandomSeed != nil {
			h.rng = rand.New(rand.NewSource(*h.opts.RandomSeed))
		} else {
			h.rng = rand.New(rand.NewSource(rand.Int63()))
		}
	}

	if h.scratchPool.New == nil {
		h.scratchPool.New = func() any {
			return &scratch{
				candidates: searcher.NewPriorityQueue(false),
				results:    searcher.NewPriorityQueue(true),
				visited:    visited.New(len(h.nodes)),
			}
		}
	}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h *Index) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer

	if _, err := h.WriteTo(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (h *Index) UnmarshalBinary(data []byte) error {
	_, err := h.ReadFrom(bytes.NewReader(data))

	return err
}

// SaveToFile atomically writes the serialized graph to the given path.
func (h *Index) SaveToFile(filename string) error {
	return persistence.SaveToFile(filename, func(w io.Writer) error {
		_, err := h.WriteTo(w)

		return err
	})
}

// LoadFromFile reads a graph previously written with SaveToFile.
func LoadFromFile(filename string, optFns ...func(o *Options)) (*Index, error) {
	h, err := New(optFns...)
	if err != nil {
		return nil, err
	}

	if err := persistence.LoadFromFile(filename, func(r io.Reader) error {
		_, err := h.ReadFrom(r)

		return err
	}); err != nil {
		return nil, err
	}

	return h, nil
}
