package bm25

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/seekgo/persistence"
)

// WriteTo serializes the index to w and returns the number of bytes written.
// Map entries are emitted in sorted key order so identical indexes produce
// identical bytes.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	bw := persistence.NewWriter(w)

	if err := bw.WriteHeader(persistence.MagicBM25); err != nil {
		return bw.Count(), err
	}

	for _, v := range []float32{
		idx.opts.K1,
		idx.opts.B,
		idx.opts.NameBoost,
		idx.opts.SignatureBoost,
		idx.opts.DocBoost,
		idx.opts.PathBoost,
	} {
		if err := bw.WriteFloat32(v); err != nil {
			return bw.Count(), err
		}
	}

	for f := 0; f < numFields; f++ {
		if err := bw.WriteFloat32(idx.avgLen[f]); err != nil {
			return bw.Count(), err
		}
	}

	if err := bw.WriteBool(idx.built); err != nil {
		return bw.Count(), err
	}

	if err := bw.WriteUint32(uint32(len(idx.docs))); err != nil {
		return bw.Count(), err
	}

	for i := range idx.docs {
		d := &idx.docs[i]

		if err := bw.WriteUint32(d.id); err != nil {
			return bw.Count(), err
		}

		for f := 0; f < numFields; f++ {
			if err := writeCountMap(bw, d.tf[f]); err != nil {
				return bw.Count(), err
			}
		}

		for f := 0; f < numFields; f++ {
			if err := bw.WriteUint32(d.length[f]); err != nil {
				return bw.Count(), err
			}
		}
	}

	if err := writeCountMap(bw, idx.docFreq); err != nil {
		return bw.Count(), err
	}

	if err := writeWeightMap(bw, idx.idf); err != nil {
		return bw.Count(), err
	}

	return bw.Count(), nil
}

// ReadFrom restores the index from r. The receiver is only modified on full
// success; a short or corrupt stream leaves it untouched. The tokenizer is
// not part of the stream and keeps its configured value.
func (idx *Index) ReadFrom(r io.Reader) (int64, error) {
	br := persistence.NewReader(r)

	if err := br.ReadHeader(persistence.MagicBM25); err != nil {
		return br.Count(), err
	}

	opts := idx.opts

	for _, p := range []*float32{
		&opts.K1,
		&opts.B,
		&opts.NameBoost,
		&opts.SignatureBoost,
		&opts.DocBoost,
		&opts.PathBoost,
	} {
		v, err := br.ReadFloat32()
		if err != nil {
			return br.Count(), err
		}

		*p = v
	}

	var avgLen [numFields]float32

	for f := 0; f < numFields; f++ {
		v, err := br.ReadFloat32()
		if err != nil {
			return br.Count(), err
		}

		avgLen[f] = v
	}

	built, err := br.ReadBool()
	if err != nil {
		return br.Count(), err
	}

	docCount, err := br.ReadUint32()
	if err != nil {
		return br.Count(), err
	}

	if uint64(docCount) > persistence.MaxElems {
		return br.Count(), fmt.Errorf("%w: document count %d exceeds limit", persistence.ErrCorrupt, docCount)
	}

	docs := make([]document, 0, docCount)

	for i := uint32(0); i < docCount; i++ {
		var d document

		d.id, err = br.ReadUint32()
		if err != nil {
			return br.Count(), err
		}

		for f := 0; f < numFields; f++ {
			d.tf[f], err = readCountMap(br)
			if err != nil {
				return br.Count(), err
			}
		}

		for f := 0; f < numFields; f++ {
			d.length[f], err = br.ReadUint32()
			if err != nil {
				return br.Count(), err
			}
		}

		docs = append(docs, d)
	}

	docFreq, err := readCountMap(br)
	if err != nil {
		return br.Count(), err
	}

	idf, err := readWeightMap(br)
	if err != nil {
		return br.Count(), err
	}

	// Postings are derived state and are rebuilt rather than stored.
	postings := make(map[string]*roaring.Bitmap, len(docFreq))

	for pos := range docs {
		d := &docs[pos]

		for f := 0; f < numFields; f++ {
			for t := range d.tf[f] {
				bm, ok := postings[t]
				if !ok {
					bm = roaring.New()
					postings[t] = bm
				}

				bm.Add(uint32(pos))
			}
		}
	}

	idx.opts = opts
	idx.docs = docs
	idx.postings = postings
	idx.docFreq = docFreq
	idx.idf = idf
	idx.avgLen = avgLen
	idx.built = built

	return br.Count(), nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (idx *Index) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer

	if _, err := idx.WriteTo(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (idx *Index) UnmarshalBinary(data []byte) error {
	_, err := idx.ReadFrom(bytes.NewReader(data))

	return err
}

// SaveToFile atomically writes the serialized index to the given path.
func (idx *Index) SaveToFile(filename string) error {
	return persistence.SaveToFile(filename, func(w io.Writer) error {
		_, err := idx.WriteTo(w)

		return err
	})
}

// LoadFromFile reads an index previously written with SaveToFile.
func LoadFromFile(filename string, optFns ...func(o *Options)) (*Index, error) {
	idx := New(optFns...)

	if err := persistence.LoadFromFile(filename, func(r io.Reader) error {
		_, err := idx.ReadFrom(r)

		return err
	}); err != nil {
		return nil, err
	}

	return idx, nil
}

func writeCountMap(bw *persistence.Writer, m map[string]uint32) error {
	if err := bw.WriteUint32(uint32(len(m))); err != nil {
		return err
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		if err := bw.WriteString(k); err != nil {
			return err
		}

		if err := bw.WriteUint32(m[k]); err != nil {
			return err
		}
	}

	return nil
}

func readCountMap(br *persistence.Reader) (map[string]uint32, error) {
	count, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}

	if uint64(count) > persistence.MaxElems {
		return nil, fmt.Errorf("%w: map size %d exceeds limit", persistence.ErrCorrupt, count)
	}

	m := make(map[string]uint32, count)

	for i := uint32(0); i < count; i++ {
		k, err := br.ReadString()
		if err != nil {
			return nil, err
		}

		v, err := br.ReadUint32()
		if err != nil {
			return nil, err
		}

		m[k] = v
	}

	return m, nil
}

func writeWeightMap(bw *persistence.Writer, m map[string]float32) error {
	if err := bw.WriteUint32(uint32(len(m))); err != nil {
		return err
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		if err := bw.WriteString(k); err != nil {
			return err
		}

		if err := bw.WriteFloat32(m[k]); err != nil {
			return err
		}
	}

	return nil
}

func readWeightMap(br *persistence.Reader) (map[string]float32, error) {
	count, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}

	if uint64(count) > persistence.MaxElems {
		return nil, fmt.Errorf("%w: map size %d exceeds limit", persistence.ErrCorrupt, count)
	}

	m := make(map[string]float32, count)

	for i := uint32(0); i < count; i++ {
		k, err := br.ReadString()
		if err != nil {
			return nil, err
		}

		v, err := br.ReadFloat32()
		if err != nil {
			return nil, err
		}

		m[k] = v
	}

	return m, nil
}
