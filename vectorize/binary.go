package vectorize

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/hupe1980/seekgo/persistence"
)

// WriteTo serializes the vectorizer to w and returns the number of bytes
// written. Map entries are emitted in sorted key order so identical
// vectorizers produce identical bytes.
func (v *Vectorizer) WriteTo(w io.Writer) (int64, error) {
	bw := persistence.NewWriter(w)

	if err := bw.WriteHeader(persistence.MagicTFIDF); err != nil {
		return bw.Count(), err
	}

	if err := bw.WriteUint32(uint32(v.maxDims)); err != nil {
		return bw.Count(), err
	}

	if err := bw.WriteUint32(uint32(len(v.idfWeights))); err != nil {
		return bw.Count(), err
	}

	if err := bw.WriteBool(v.built); err != nil {
		return bw.Count(), err
	}

	if err := bw.WriteUint32(v.totalDocs); err != nil {
		return bw.Count(), err
	}

	keys := make([]string, 0, len(v.termToDim))
	for t := range v.termToDim {
		keys = append(keys, t)
	}

	sort.Strings(keys)

	if err := bw.WriteUint32(uint32(len(keys))); err != nil {
		return bw.Count(), err
	}

	for _, t := range keys {
		if err := bw.WriteString(t); err != nil {
			return bw.Count(), err
		}

		if err := bw.WriteUint32(v.termToDim[t]); err != nil {
			return bw.Count(), err
		}
	}

	if err := bw.WriteFloat32Slice(v.idfWeights); err != nil {
		return bw.Count(), err
	}

	dfKeys := make([]string, 0, len(v.docFreq))
	for t := range v.docFreq {
		dfKeys = append(dfKeys, t)
	}

	sort.Strings(dfKeys)

	if err := bw.WriteUint32(uint32(len(dfKeys))); err != nil {
		return bw.Count(), err
	}

	for _, t := range dfKeys {
		if err := bw.WriteString(t); err != nil {
			return bw.Count(), err
		}

		if err := bw.WriteUint32(v.docFreq[t]); err != nil {
			return bw.Count(), err
		}
	}

	return bw.Count(), nil
}

// ReadFrom restores the vectorizer from r. The receiver is only modified on
// full success; a short or corrupt stream leaves it untouched. The tokenizer
// is not part of the stream and keeps its configured value.
func (v *Vectorizer) ReadFrom(r io.Reader) (int64, error) {
	br := persistence.NewReader(r)

	if err := br.ReadHeader(persistence.MagicTFIDF); err != nil {
		return br.Count(), err
	}

	maxDims, err := br.ReadUint32()
	if err != nil {
		return br.Count(), err
	}

	dims, err := br.ReadUint32()
	if err != nil {
		return br.Count(), err
	}

	if uint64(dims) > persistence.MaxElems {
		return br.Count(), fmt.Errorf("%w: dimension count %d exceeds limit", persistence.ErrCorrupt, dims)
	}

	built, err := br.ReadBool()
	if err != nil {
		return br.Count(), err
	}

	totalDocs, err := br.ReadUint32()
	if err != nil {
		return br.Count(), err
	}

	termCount, err := br.ReadUint32()
	if err != nil {
		return br.Count(), err
	}

	if uint64(termCount) > persistence.MaxElems {
		return br.Count(), fmt.Errorf("%w: term count %d exceeds limit", persistence.ErrCorrupt, termCount)
	}

	termToDim := make(map[string]uint32, termCount)

	for i := uint32(0); i < termCount; i++ {
		t, err := br.ReadString()
		if err != nil {
			return br.Count(), err
		}

		dim, err := br.ReadUint32()
		if err != nil {
			return br.Count(), err
		}

		if dim >= dims {
			return br.Count(), fmt.Errorf("%w: dimension %d out of range for term %q", persistence.ErrCorrupt, dim, t)
		}

		termToDim[t] = dim
	}

	idfWeights, err := br.ReadFloat32Slice()
	if err != nil {
		return br.Count(), err
	}

	if uint32(len(idfWeights)) != dims {
		return br.Count(), fmt.Errorf("%w: weight count %d does not match dimension count %d", persistence.ErrCorrupt, len(idfWeights), dims)
	}

	dfCount, err := br.ReadUint32()
	if err != nil {
		return br.Count(), err
	}

	if uint64(dfCount) > persistence.MaxElems {
		return br.Count(), fmt.Errorf("%w: document frequency count %d exceeds limit", persistence.ErrCorrupt, dfCount)
	}

	docFreq := make(map[string]uint32, dfCount)

	for i := uint32(0); i < dfCount; i++ {
		t, err := br.ReadString()
		if err != nil {
			return br.Count(), err
		}

		df, err := br.ReadUint32()
		if err != nil {
			return br.Count(), err
		}

		docFreq[t] = df
	}

	v.maxDims = int(maxDims)
	v.termToDim = termToDim
	v.idfWeights = idfWeights
	v.docFreq = docFreq
	v.totalDocs = totalDocs
	v.built = built

	return br.Count(), nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (v *Vectorizer) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer

	if _, err := v.WriteTo(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (v *Vectorizer) UnmarshalBinary(data []byte) error {
	_, err := v.ReadFrom(bytes.NewReader(data))

	return err
}

// SaveToFile atomically writes the serialized vectorizer to the given path.
func (v *Vectorizer) SaveToFile(filename string) error {
	return persistence.SaveToFile(filename, func(w io.Writer) error {
		_, err := v.WriteTo(w)

		return err
	})
}

// LoadFromFile reads a vectorizer previously written with SaveToFile.
func LoadFromFile(filename string, optFns ...func(o *Options)) (*Vectorizer, error) {
	v := New(DefaultMaxDims, optFns...)

	if err := persistence.LoadFromFile(filename, func(r io.Reader) error {
		_, err := v.ReadFrom(r)

		return err
	}); err != nil {
		return nil, err
	}

	return v, nil
}
