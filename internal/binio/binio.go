// Package binio provides bounds-checked little-endian reading and an
// appending writer for the Nintendo DS file formats.
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfBounds is recorded when a read runs past the end of the data.
var ErrOutOfBounds = errors.New("read out of bounds")

// Reader reads fixed-width little-endian values at absolute offsets. The
// first failed read is kept in Err and every later read returns zero, so a
// parser can check once after a group of reads.
type Reader struct {
	data []byte
	err  error
}

// NewReader wraps data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first out-of-bounds error, if any.
func (r *Reader) Err() error {
	return r.err
}

// Len returns the size of the underlying data.
func (r *Reader) Len() int {
	return len(r.data)
}

func (r *Reader) check(off, n int) bool {
	if r.err != nil {
		return false
	}
	if off < 0 || n < 0 || off+n > len(r.data) {
		r.err = fmt.Errorf("%w: %d bytes at 0x%X (size 0x%X)", ErrOutOfBounds, n, off, len(r.data))
		return false
	}
	return true
}

// U8 reads a byte.
func (r *Reader) U8(off int) uint8 {
	if !r.check(off, 1) {
		return 0
	}
	return r.data[off]
}

// U16 reads a little-endian uint16.
func (r *Reader) U16(off int) uint16 {
	if !r.check(off, 2) {
		return 0
	}
	return binary.LittleEndian.Uint16(r.data[off:])
}

// U32 reads a little-endian uint32.
func (r *Reader) U32(off int) uint32 {
	if !r.check(off, 4) {
		return 0
	}
	return binary.LittleEndian.Uint32(r.data[off:])
}

// Bytes returns a copy of n bytes starting at off.
func (r *Reader) Bytes(off, n int) []byte {
	if !r.check(off, n) {
		return nil
	}
	out := make([]byte, n)
	copy(out, r.data[off:off+n])
	return out
}

// Magic reports whether the four bytes at off equal magic.
func (r *Reader) Magic(off int, magic string) bool {
	if !r.check(off, len(magic)) {
		return false
	}
	return string(r.data[off:off+len(magic)]) == magic
}

// CString reads a NUL-terminated string starting at off.
func (r *Reader) CString(off int) string {
	if !r.check(off, 0) {
		return ""
	}
	for end := off; end < len(r.data); end++ {
		if r.data[end] == 0 {
			return string(r.data[off:end])
		}
	}
	r.err = fmt.Errorf("%w: unterminated string at 0x%X", ErrOutOfBounds, off)
	return ""
}

// Writer builds a little-endian byte stream.
type Writer struct {
	buf []byte
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the written data.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// U8 appends a byte.
func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

// U16 appends a little-endian uint16.
func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// U32 appends a little-endian uint32.
func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// Write appends raw bytes.
func (w *Writer) Write(p []byte) {
	w.buf = append(w.buf, p...)
}

// Zero appends n zero bytes.
func (w *Writer) Zero(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

// Align pads with zeros until the length is a multiple of n.
func (w *Writer) Align(n int) {
	w.Zero(AlignUp(len(w.buf), n) - len(w.buf))
}

// PutU16 overwrites a uint16 previously reserved at off.
func (w *Writer) PutU16(off int, v uint16) {
	binary.LittleEndian.PutUint16(w.buf[off:], v)
}

// PutU32 overwrites a uint32 previously reserved at off.
func (w *Writer) PutU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[off:], v)
}

// AlignUp rounds v up to a multiple of n.
func AlignUp(v, n int) int {
	if n <= 1 {
		return v
	}
	return (v + n - 1) / n * n
}
