// Package persistence implements the versioned little-endian binary format
// shared by the index types, plus atomic file helpers and snapshot
// compression.
//
// Scalars are little-endian; strings are u32-length-prefixed UTF-8; slices
// are u32-count-prefixed raw element bytes. Decoding validates the magic and
// version first and returns a typed error on any mismatch or truncation - it
// never panics on corrupt input.
package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"unsafe"
)

// Writer encodes primitives to an io.Writer, counting bytes written.
type Writer struct {
	w   io.Writer
	n   int64
	buf [8]byte
}

// NewWriter creates a new binary writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Count returns the number of bytes written so far.
func (bw *Writer) Count() int64 {
	return bw.n
}

func (bw *Writer) write(p []byte) error {
	n, err := bw.w.Write(p)
	bw.n += int64(n)
	return err
}

// WriteUint32 writes v as a little-endian u32.
func (bw *Writer) WriteUint32(v uint32) error {
	binary.LittleEndian.PutUint32(bw.buf[:4], v)
	return bw.write(bw.buf[:4])
}

// WriteInt32 writes v as a little-endian i32.
func (bw *Writer) WriteInt32(v int32) error {
	return bw.WriteUint32(uint32(v))
}

// WriteFloat32 writes v as a little-endian IEEE 754 f32.
func (bw *Writer) WriteFloat32(v float32) error {
	return bw.WriteUint32(math.Float32bits(v))
}

// WriteFloat64 writes v as a little-endian IEEE 754 f64.
func (bw *Writer) WriteFloat64(v float64) error {
	binary.LittleEndian.PutUint64(bw.buf[:8], math.Float64bits(v))
	return bw.write(bw.buf[:8])
}

// WriteBool writes v as a single byte (1 or 0).
func (bw *Writer) WriteBool(v bool) error {
	b := byte(0)
	if v {
		b = 1
	}
	return bw.write([]byte{b})
}

// WriteString writes a u32 length prefix followed by the raw bytes of s.
func (bw *Writer) WriteString(s string) error {
	if err := bw.WriteUint32(uint32(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	return bw.write([]byte(s))
}

// WriteUint32Slice writes a u32 count followed by the raw element bytes.
func (bw *Writer) WriteUint32Slice(s []uint32) error {
	if err := bw.WriteUint32(uint32(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	return bw.write(unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4))
}

// WriteFloat32Slice writes a u32 count followed by the raw element bytes.
func (bw *Writer) WriteFloat32Slice(s []float32) error {
	if err := bw.WriteUint32(uint32(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	return bw.write(unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4))
}

// Reader decodes primitives from an io.Reader, counting bytes read.
type Reader struct {
	r   io.Reader
	n   int64
	buf [8]byte
}

// NewReader creates a new binary reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Count returns the number of bytes read so far.
func (br *Reader) Count() int64 {
	return br.n
}

func (br *Reader) read(p []byte) error {
	n, err := io.ReadFull(br.r, p)
	br.n += int64(n)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return nil
}

// ReadUint32 reads a little-endian u32.
func (br *Reader) ReadUint32() (uint32, error) {
	if err := br.read(br.buf[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(br.buf[:4]), nil
}

// ReadInt32 reads a little-endian i32.
func (br *Reader) ReadInt32() (int32, error) {
	v, err := br.ReadUint32()
	return int32(v), err
}

// ReadFloat32 reads a little-endian IEEE 754 f32.
func (br *Reader) ReadFloat32() (float32, error) {
	v, err := br.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads a little-endian IEEE 754 f64.
func (br *Reader) ReadFloat64() (float64, error) {
	if err := br.read(br.buf[:8]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(br.buf[:8])), nil
}

// ReadBool reads a single byte; any nonzero value is true.
func (br *Reader) ReadBool() (bool, error) {
	if err := br.read(br.buf[:1]); err != nil {
		return false, err
	}
	return br.buf[0] != 0, nil
}

// ReadString reads a u32-length-prefixed string.
func (br *Reader) ReadString() (string, error) {
	n, err := br.ReadUint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	if n > MaxElems {
		return "", fmt.Errorf("%w: string length %d", ErrCorrupt, n)
	}
	b := make([]byte, n)
	if err := br.read(b); err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadUint32Slice reads a u32-count-prefixed uint32 slice.
func (br *Reader) ReadUint32Slice() ([]uint32, error) {
	n, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if n > MaxElems {
		return nil, fmt.Errorf("%w: slice length %d", ErrCorrupt, n)
	}
	s := make([]uint32, n)
	if err := br.read(unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), int(n)*4)); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadFloat32Slice reads a u32-count-prefixed float32 slice.
func (br *Reader) ReadFloat32Slice() ([]float32, error) {
	n, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if n > MaxElems {
		return nil, fmt.Errorf("%w: slice length %d", ErrCorrupt, n)
	}
	s := make([]float32, n)
	if err := br.read(unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), int(n)*4)); err != nil {
		return nil, err
	}
	return s, nil
}

// WriteHeader writes a format magic and the current version.
func (bw *Writer) WriteHeader(magic uint32) error {
	if err := bw.WriteUint32(magic); err != nil {
		return err
	}
	return bw.WriteUint32(Version)
}

// ReadHeader reads and validates a format magic and version.
func (br *Reader) ReadHeader(magic uint32) error {
	got, err := br.ReadUint32()
	if err != nil {
		return err
	}
	if got != magic {
		return fmt.Errorf("%w: got 0x%08x, want 0x%08x", ErrInvalidMagic, got, magic)
	}
	version, err := br.ReadUint32()
	if err != nil {
		return err
	}
	if version != Version {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidVersion, version, Version)
	}
	return nil
}

// SaveToFile writes data to filename atomically: the payload goes to a temp
// file in the same directory, is fsynced, then renamed over the target.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	// Match typical file permissions (best-effort).
	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	// Success: prevent deferred cleanup from removing the final file.
	tmpName = ""
	return nil
}

// LoadFromFile opens filename and passes a buffered reader to readFunc.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return readFunc(bufio.NewReaderSize(f, 256*1024))
}
