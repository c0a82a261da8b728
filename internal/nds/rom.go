// Package nds reads and patches Nintendo DS ROM images: it resolves files
// through the name table (FNT) and allocation table (FAT) and can replace a
// file's contents while keeping the header consistent.
package nds

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/sigurn/crc16"

	"github.com/Terr/phoenix-wright-2-onifier/internal/binio"
)

var (
	// ErrMalformed is returned when the image is not a readable DS ROM.
	ErrMalformed = errors.New("malformed ROM")
	// ErrFileNotFound is returned when a path is not in the name table.
	ErrFileNotFound = errors.New("file not found in ROM")
)

// Header offsets.
const (
	offTitle       = 0x00
	offGameCode    = 0x0C
	offCapacity    = 0x14
	offFNT         = 0x40
	offFNTSize     = 0x44
	offFAT         = 0x48
	offFATSize     = 0x4C
	offUsedSize    = 0x80
	offHeaderCRC   = 0x15E
	minHeaderSize  = 0x200
	firstDirID     = 0xF000
	fileAlignment  = 0x200
	signatureSize  = 0x88
	bannerSize     = 0x840
	minCapacityLog = 17 // capacity is 128 KiB << header[0x14]
)

type extent struct {
	start, end int
}

// ROM is a loaded DS image. Only the FAT and the header fields that depend
// on file placement are rewritten; everything else is kept byte for byte.
type ROM struct {
	data  []byte
	fat   []extent
	paths map[string]int
}

// Load parses a ROM image. The data is copied.
func Load(data []byte) (*ROM, error) {
	if len(data) < minHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is smaller than a ROM header", ErrMalformed, len(data))
	}

	rom := &ROM{data: make([]byte, len(data)), paths: make(map[string]int)}
	copy(rom.data, data)

	r := binio.NewReader(rom.data)
	fatOff, fatSize := int(r.U32(offFAT)), int(r.U32(offFATSize))
	if fatSize%8 != 0 || fatOff+fatSize > len(data) {
		return nil, fmt.Errorf("%w: FAT at 0x%X (0x%X bytes) outside image", ErrMalformed, fatOff, fatSize)
	}
	rom.fat = make([]extent, fatSize/8)
	for i := range rom.fat {
		e := extent{start: int(r.U32(fatOff + i*8)), end: int(r.U32(fatOff + i*8 + 4))}
		if e.end < e.start || e.end > len(data) {
			return nil, fmt.Errorf("%w: file %d spans 0x%X-0x%X", ErrMalformed, i, e.start, e.end)
		}
		rom.fat[i] = e
	}

	fntOff := int(r.U32(offFNT))
	if err := rom.readNames(r, fntOff); err != nil {
		return nil, err
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, r.Err())
	}
	return rom, nil
}

// readNames walks the directory tree of the FNT starting at the root.
func (rom *ROM) readNames(r *binio.Reader, fnt int) error {
	dirCount := int(r.U16(fnt + 6))
	if r.Err() != nil || dirCount == 0 || dirCount > 0x1000 {
		return fmt.Errorf("%w: FNT root at 0x%X is invalid", ErrMalformed, fnt)
	}

	visited := make(map[int]bool)
	var walk func(dir int, prefix string) error
	walk = func(dir int, prefix string) error {
		if dir < 0 || dir >= dirCount || visited[dir] {
			return fmt.Errorf("%w: FNT directory 0x%X is invalid", ErrMalformed, firstDirID+dir)
		}
		visited[dir] = true

		pos := fnt + int(r.U32(fnt+dir*8))
		fileID := int(r.U16(fnt + dir*8 + 4))
		for r.Err() == nil {
			typeLen := r.U8(pos)
			pos++
			if typeLen == 0 {
				break
			}
			n := int(typeLen & 0x7F)
			name := string(r.Bytes(pos, n))
			pos += n

			if typeLen&0x80 == 0 {
				if fileID >= len(rom.fat) {
					return fmt.Errorf("%w: %q has file ID %d beyond FAT", ErrMalformed, prefix+name, fileID)
				}
				rom.paths[prefix+name] = fileID
				fileID++
				continue
			}

			sub := int(r.U16(pos)) - firstDirID
			pos += 2
			if err := walk(sub, prefix+name+"/"); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(0, ""); err != nil {
		return err
	}
	if r.Err() != nil {
		return fmt.Errorf("%w: FNT: %w", ErrMalformed, r.Err())
	}
	return nil
}

// Title returns the 12-character game title from the header.
func (rom *ROM) Title() string {
	return strings.TrimRight(string(rom.data[offTitle:offTitle+12]), "\x00 ")
}

// GameCode returns the four-character game code.
func (rom *ROM) GameCode() string {
	return string(rom.data[offGameCode : offGameCode+4])
}

// Paths returns the number of named files.
func (rom *ROM) Paths() int {
	return len(rom.paths)
}

// FileID resolves a slash-separated path.
func (rom *ROM) FileID(path string) (int, error) {
	id, ok := rom.paths[strings.TrimPrefix(path, "/")]
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	return id, nil
}

// ReadFile returns a copy of a file's contents.
func (rom *ROM) ReadFile(path string) ([]byte, error) {
	id, err := rom.FileID(path)
	if err != nil {
		return nil, err
	}
	e := rom.fat[id]
	out := make([]byte, e.end-e.start)
	copy(out, rom.data[e.start:e.end])
	return out, nil
}

// ReplaceFile swaps a file's contents. Data that fits the current extent is
// written in place with the remainder filled with 0xFF; larger data is moved
// to the end of the image.
func (rom *ROM) ReplaceFile(path string, data []byte) error {
	id, err := rom.FileID(path)
	if err != nil {
		return err
	}

	e := rom.fat[id]
	if len(data) <= e.end-e.start {
		copy(rom.data[e.start:], data)
		fill(rom.data[e.start+len(data):e.end], 0xFF)
		rom.setExtent(id, extent{start: e.start, end: e.start + len(data)})
	} else {
		rom.appendFile(id, data)
	}

	rom.updateCapacity()
	rom.updateHeaderCRC()
	return nil
}

func (rom *ROM) appendFile(id int, data []byte) {
	used := int(binary.LittleEndian.Uint32(rom.data[offUsedSize:]))
	sig := rom.signature(used)

	start := used + len(sig)
	for _, e := range rom.fat {
		start = max(start, e.end)
	}
	for _, e := range rom.headerRegions() {
		start = max(start, e.end)
	}
	start = binio.AlignUp(start, fileAlignment)
	end := start + len(data)

	if need := end + len(sig); need > len(rom.data) {
		grown := make([]byte, need)
		copy(grown, rom.data)
		fill(grown[len(rom.data):], 0xFF)
		rom.data = grown
	}
	copy(rom.data[start:], data)
	copy(rom.data[end:], sig)

	rom.setExtent(id, extent{start: start, end: end})
	binary.LittleEndian.PutUint32(rom.data[offUsedSize:], uint32(end))
}

// headerRegions lists the areas the header points at directly: ARM9 and
// ARM7 binaries, FNT, FAT, overlay tables and the banner.
func (rom *ROM) headerRegions() []extent {
	var regions []extent
	for _, f := range [][2]int{{0x20, 0x2C}, {0x30, 0x3C}, {offFNT, offFNTSize}, {offFAT, offFATSize}, {0x50, 0x54}, {0x58, 0x5C}} {
		start := int(binary.LittleEndian.Uint32(rom.data[f[0]:]))
		size := int(binary.LittleEndian.Uint32(rom.data[f[1]:]))
		regions = append(regions, extent{start: start, end: start + size})
	}
	if banner := int(binary.LittleEndian.Uint32(rom.data[0x68:])); banner != 0 {
		regions = append(regions, extent{start: banner, end: banner + bannerSize})
	}
	return regions
}

// signature returns the download-play RSA signature stored right after the
// used area, or nil when that area is blank.
func (rom *ROM) signature(used int) []byte {
	if used+signatureSize > len(rom.data) {
		return nil
	}
	area := rom.data[used : used+signatureSize]
	for _, b := range area {
		if b != 0xFF && b != 0x00 {
			sig := make([]byte, signatureSize)
			copy(sig, area)
			return sig
		}
	}
	return nil
}

func (rom *ROM) setExtent(id int, e extent) {
	rom.fat[id] = e
	fatOff := int(binary.LittleEndian.Uint32(rom.data[offFAT:]))
	binary.LittleEndian.PutUint32(rom.data[fatOff+id*8:], uint32(e.start))
	binary.LittleEndian.PutUint32(rom.data[fatOff+id*8+4:], uint32(e.end))
}

func (rom *ROM) updateCapacity() {
	shift := int(rom.data[offCapacity])
	for (1<<(minCapacityLog+shift)) < len(rom.data) && shift < 0x0F {
		shift++
	}
	rom.data[offCapacity] = byte(shift)
}

func (rom *ROM) updateHeaderCRC() {
	binary.LittleEndian.PutUint16(rom.data[offHeaderCRC:], CRC16(rom.data[:offHeaderCRC]))
}

// Bytes returns the image. The slice is owned by the ROM.
func (rom *ROM) Bytes() []byte {
	return rom.data
}

var headerCRCTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// CRC16 computes the CRC-16/MODBUS checksum used by DS headers.
func CRC16(data []byte) uint16 {
	return crc16.Checksum(data, headerCRCTable)
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
