package nds

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/Terr/phoenix-wright-2-onifier/internal/binio"
)

// File is an entry for Build.
type File struct {
	Path string // slash separated, e.g. "data/sound_data.sdat"
	Data []byte
}

type dirEntry struct {
	name  string
	dir   int // subdirectory index, or -1 for a file
	file  int // index into the Build input
	isDir bool
}

type dirNode struct {
	parent  int
	entries []dirEntry
	byName  map[string]int
}

// Build assembles a ROM image holding only a header, FNT, FAT and the given
// files. It contains no executable code; it is meant for tooling and test
// fixtures that need a loadable container.
func Build(title, gameCode string, files []File) ([]byte, error) {
	if len(title) > 12 || len(gameCode) != 4 {
		return nil, fmt.Errorf("title %q or game code %q has the wrong length", title, gameCode)
	}

	dirs := []*dirNode{{byName: map[string]int{}}}
	for i, f := range files {
		parts := strings.Split(strings.Trim(f.Path, "/"), "/")
		cur := 0
		for _, part := range parts[:len(parts)-1] {
			sub, ok := dirs[cur].byName[part]
			if !ok {
				sub = len(dirs)
				dirs = append(dirs, &dirNode{parent: cur, byName: map[string]int{}})
				dirs[cur].byName[part] = sub
				dirs[cur].entries = append(dirs[cur].entries, dirEntry{name: part, dir: sub, isDir: true})
			}
			cur = sub
		}
		name := parts[len(parts)-1]
		if name == "" || len(name) > 0x7F {
			return nil, fmt.Errorf("invalid file name in %q", f.Path)
		}
		dirs[cur].entries = append(dirs[cur].entries, dirEntry{name: name, dir: -1, file: i})
	}

	// Files in one directory get consecutive IDs.
	fileIDs := make([]int, len(files))
	firstIDs := make([]int, len(dirs))
	next := 0
	for d, dir := range dirs {
		firstIDs[d] = next
		for _, e := range dir.entries {
			if !e.isDir {
				fileIDs[e.file] = next
				next++
			}
		}
	}

	var w binio.Writer
	w.Zero(minHeaderSize)

	fntOff := w.Len()
	w.Zero(8 * len(dirs))
	for d, dir := range dirs {
		w.PutU32(fntOff+d*8, uint32(w.Len()-fntOff))
		w.PutU16(fntOff+d*8+4, uint16(firstIDs[d]))
		if d == 0 {
			w.PutU16(fntOff+6, uint16(len(dirs)))
		} else {
			w.PutU16(fntOff+d*8+6, uint16(firstDirID+dir.parent))
		}
		for _, e := range dir.entries {
			if e.isDir {
				w.U8(uint8(len(e.name)) | 0x80)
				w.Write([]byte(e.name))
				w.U16(uint16(firstDirID + e.dir))
			} else {
				w.U8(uint8(len(e.name)))
				w.Write([]byte(e.name))
			}
		}
		w.U8(0)
	}
	fntSize := w.Len() - fntOff
	w.Align(4)

	fatOff := w.Len()
	w.Zero(8 * len(files))
	for i, f := range files {
		w.Align(fileAlignment)
		slot := fatOff + fileIDs[i]*8
		w.PutU32(slot, uint32(w.Len()))
		w.Write(f.Data)
		w.PutU32(slot+4, uint32(w.Len()))
	}

	data := w.Bytes()
	copy(data[offTitle:], title)
	copy(data[offGameCode:], gameCode)
	binary.LittleEndian.PutUint32(data[offFNT:], uint32(fntOff))
	binary.LittleEndian.PutUint32(data[offFNTSize:], uint32(fntSize))
	binary.LittleEndian.PutUint32(data[offFAT:], uint32(fatOff))
	binary.LittleEndian.PutUint32(data[offFATSize:], uint32(8*len(files)))
	binary.LittleEndian.PutUint32(data[offUsedSize:], uint32(len(data)))
	binary.LittleEndian.PutUint32(data[0x84:], minHeaderSize)

	rom := &ROM{data: data}
	rom.updateCapacity()
	rom.updateHeaderCRC()
	return rom.data, nil
}
