package sdat

import (
	"github.com/Terr/phoenix-wright-2-onifier/internal/binio"
	"github.com/Terr/phoenix-wright-2-onifier/internal/named"
)

const fileAlignment = 0x20

// fileTable collects FAT entries, storing byte-identical files once.
type fileTable struct {
	files [][]byte
	index map[string]int
}

func (t *fileTable) add(data []byte) int {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if id, ok := t.index[string(data)]; ok {
		return id
	}
	t.files = append(t.files, data)
	t.index[string(data)] = len(t.files) - 1
	return len(t.files) - 1
}

// Save serializes the archive. File IDs are reassigned; every other
// reference is written as stored.
func (a *Archive) Save() ([]byte, error) {
	var files fileTable
	var names [sectionCount][]string
	var infos [sectionCount][][]byte

	for i, e := range a.Sequences.Entries() {
		names[sectionSequence] = append(names[sectionSequence], e.Name)
		if e.Value == nil {
			infos[sectionSequence] = append(infos[sectionSequence], nil)
			continue
		}
		s := e.Value
		if s.BankID < 0 || s.BankID > 0xFFFF {
			return nil, malformed("sequence %d (%q): bank ID %d out of range", i, e.Name, s.BankID)
		}
		var w binio.Writer
		w.U16(uint16(files.add(s.Data)))
		w.U16(s.Unknown02)
		w.U16(uint16(s.BankID))
		w.U8(s.Volume)
		w.U8(s.ChannelPressure)
		w.U8(s.PolyphonicPressure)
		w.U8(s.PlayerID)
		w.U16(s.Reserved)
		infos[sectionSequence] = append(infos[sectionSequence], w.Bytes())
	}

	for _, e := range a.SequenceArchives.Entries() {
		names[sectionSequenceArchive] = append(names[sectionSequenceArchive], e.Name)
		if e.Value == nil {
			infos[sectionSequenceArchive] = append(infos[sectionSequenceArchive], nil)
			continue
		}
		info := withFileID(e.Value.Info, infoEntrySizes[sectionSequenceArchive], files.add(e.Value.Data))
		infos[sectionSequenceArchive] = append(infos[sectionSequenceArchive], info)
	}

	for i, e := range a.Banks.Entries() {
		names[sectionBank] = append(names[sectionBank], e.Name)
		if e.Value == nil {
			infos[sectionBank] = append(infos[sectionBank], nil)
			continue
		}
		b := e.Value
		data, err := BankFile(b.Instruments)
		if err != nil {
			return nil, malformed("bank %d (%q): %v", i, e.Name, err)
		}
		var w binio.Writer
		w.U16(uint16(files.add(data)))
		w.U16(b.Unknown02)
		for _, id := range b.WaveArchiveIDs {
			switch {
			case id == NoWaveArchive:
				w.U16(noWaveArchiveID)
			case id < 0 || id >= noWaveArchiveID:
				return nil, malformed("bank %d (%q): wave archive ID %d out of range", i, e.Name, id)
			default:
				w.U16(uint16(id))
			}
		}
		infos[sectionBank] = append(infos[sectionBank], w.Bytes())
	}

	for _, e := range a.WaveArchives.Entries() {
		names[sectionWaveArchive] = append(names[sectionWaveArchive], e.Name)
		if e.Value == nil {
			infos[sectionWaveArchive] = append(infos[sectionWaveArchive], nil)
			continue
		}
		var w binio.Writer
		w.U16(uint16(files.add(WaveArchiveFile(e.Value.Samples))))
		w.U16(e.Value.Flags)
		infos[sectionWaveArchive] = append(infos[sectionWaveArchive], w.Bytes())
	}

	for section, list := range map[int]*named.List[[]byte]{
		sectionPlayer:  &a.Players,
		sectionGroup:   &a.Groups,
		sectionPlayer2: &a.Players2,
	} {
		for _, e := range list.Entries() {
			names[section] = append(names[section], e.Name)
			infos[section] = append(infos[section], e.Value)
		}
	}

	for _, e := range a.Streams.Entries() {
		names[sectionStream] = append(names[sectionStream], e.Name)
		if e.Value == nil {
			infos[sectionStream] = append(infos[sectionStream], nil)
			continue
		}
		info := withFileID(e.Value.Info, infoEntrySizes[sectionStream], files.add(e.Value.Data))
		infos[sectionStream] = append(infos[sectionStream], info)
	}

	if len(files.files) > 0xFFFF {
		return nil, malformed("SDAT: %d files exceed the 16-bit file ID range", len(files.files))
	}

	return a.layout(names, infos, files.files), nil
}

// withFileID copies an INFO record, padding it to size, and stores id in its
// leading file ID field.
func withFileID(info []byte, size, id int) []byte {
	out := make([]byte, max(len(info), size))
	copy(out, info)
	out[0] = byte(id)
	out[1] = byte(id >> 8)
	return out
}

func (a *Archive) layout(names [sectionCount][]string, infos [sectionCount][][]byte, files [][]byte) []byte {
	var w binio.Writer
	blocks := 3
	if a.HasSymbols {
		blocks = 4
	}
	writeNitroHeader(&w, "SDAT", sdatHeaderSize, blocks)
	w.Zero(sdatHeaderSize - w.Len())

	if a.HasSymbols {
		off := w.Len()
		a.writeSymbols(&w, names)
		w.PutU32(0x10, uint32(off))
		w.PutU32(0x14, uint32(w.Len()-off))
	}

	infoOff := w.Len()
	writeInfo(&w, infos)
	w.PutU32(0x18, uint32(infoOff))
	w.PutU32(0x1C, uint32(w.Len()-infoOff))

	fatOff := w.Len()
	w.Write([]byte("FAT "))
	w.U32(0)
	w.U32(uint32(len(files)))
	w.Zero(fatEntrySize * len(files))
	w.Align(fileAlignment)
	w.PutU32(fatOff+4, uint32(w.Len()-fatOff))
	w.PutU32(0x20, uint32(fatOff))
	w.PutU32(0x24, uint32(w.Len()-fatOff))

	fileOff := w.Len()
	w.Write([]byte("FILE"))
	w.U32(0)
	w.U32(uint32(len(files)))
	w.Zero(4)
	w.Align(fileAlignment)
	for i, f := range files {
		entry := fatOff + 12 + i*fatEntrySize
		w.PutU32(entry, uint32(w.Len()))
		w.PutU32(entry+4, uint32(len(f)))
		w.Write(f)
		w.Align(fileAlignment)
	}
	w.PutU32(fileOff+4, uint32(w.Len()-fileOff))
	w.PutU32(0x28, uint32(fileOff))
	w.PutU32(0x2C, uint32(w.Len()-fileOff))

	return finishNitro(&w)
}

type pendingString struct {
	pos  int
	name string
}

func (a *Archive) writeSymbols(w *binio.Writer, names [sectionCount][]string) {
	off := w.Len()
	w.Write([]byte("SYMB"))
	w.U32(0)
	w.Zero(recordTableSize)

	var strs []pendingString
	var subRecords []int

	for section := 0; section < sectionCount; section++ {
		w.PutU32(off+blockHeaderSize+section*4, uint32(w.Len()-off))
		w.U32(uint32(len(names[section])))
		for _, name := range names[section] {
			strs = append(strs, pendingString{pos: w.Len(), name: name})
			w.U32(0)
			if section == sectionSequenceArchive {
				subRecords = append(subRecords, w.Len())
				w.U32(0)
			}
		}
	}

	for i, pos := range subRecords {
		w.PutU32(pos, uint32(w.Len()-off))
		var seqNames []string
		if ssar := a.SequenceArchives.At(i).Value; ssar != nil {
			seqNames = ssar.SequenceNames
		}
		w.U32(uint32(len(seqNames)))
		for _, name := range seqNames {
			strs = append(strs, pendingString{pos: w.Len(), name: name})
			w.U32(0)
		}
	}

	for _, s := range strs {
		if s.name == "" {
			continue
		}
		w.PutU32(s.pos, uint32(w.Len()-off))
		w.Write([]byte(s.name))
		w.U8(0)
	}

	w.Align(fileAlignment)
	w.PutU32(off+4, uint32(w.Len()-off))
}

func writeInfo(w *binio.Writer, infos [sectionCount][][]byte) {
	off := w.Len()
	w.Write([]byte("INFO"))
	w.U32(0)
	w.Zero(recordTableSize)

	var slots [sectionCount]int
	for section := 0; section < sectionCount; section++ {
		w.PutU32(off+blockHeaderSize+section*4, uint32(w.Len()-off))
		w.U32(uint32(len(infos[section])))
		slots[section] = w.Len()
		w.Zero(4 * len(infos[section]))
	}

	for section := 0; section < sectionCount; section++ {
		for i, entry := range infos[section] {
			if entry == nil {
				continue
			}
			w.PutU32(slots[section]+i*4, uint32(w.Len()-off))
			w.Write(entry)
			w.Align(4)
		}
	}

	w.Align(fileAlignment)
	w.PutU32(off+4, uint32(w.Len()-off))
}
