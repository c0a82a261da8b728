package sdat

import (
	"fmt"

	"github.com/Terr/phoenix-wright-2-onifier/internal/binio"
)

const (
	byteOrderMark   = 0xFEFF
	nitroVersion    = 0x0100
	nitroHeaderSize = 0x10

	// Single-block files (SBNK, SWAR) put their DATA block right after the
	// header; its item count sits after 32 bytes of runtime pointers.
	dataBlockOffset = nitroHeaderSize
	dataCountOffset = dataBlockOffset + 8 + 32
	dataItemsOffset = dataCountOffset + 4
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

func wrapRead(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrMalformed, what, err)
}

// checkNitroHeader validates the common 16-byte header of a DS file.
func checkNitroHeader(r *binio.Reader, magic string) error {
	if !r.Magic(0, magic) {
		if r.Err() != nil {
			return wrapRead(magic+" header", r.Err())
		}
		return malformed("expected %s magic", magic)
	}
	if bom := r.U16(4); bom != byteOrderMark {
		return malformed("%s: unexpected byte order mark 0x%04X", magic, bom)
	}
	if r.Err() != nil {
		return wrapRead(magic+" header", r.Err())
	}
	return nil
}

// writeNitroHeader starts a file with the common header; the size field is
// patched by finishNitro.
func writeNitroHeader(w *binio.Writer, magic string, headerSize, blocks int) {
	w.Write([]byte(magic))
	w.U16(byteOrderMark)
	w.U16(nitroVersion)
	w.U32(0)
	w.U16(uint16(headerSize))
	w.U16(uint16(blocks))
}

func finishNitro(w *binio.Writer) []byte {
	w.PutU32(8, uint32(w.Len()))
	return w.Bytes()
}

// startDataBlock writes a DATA block header with zeroed runtime pointers
// and the item count, returning the block's offset for size patching.
func startDataBlock(w *binio.Writer, count int) int {
	off := w.Len()
	w.Write([]byte("DATA"))
	w.U32(0)
	w.Zero(32)
	w.U32(uint32(count))
	return off
}

func finishDataBlock(w *binio.Writer, off int) {
	w.PutU32(off+4, uint32(w.Len()-off))
}
