package sdat

import (
	"github.com/Terr/phoenix-wright-2-onifier/internal/binio"
)

// Section order shared by the SYMB and INFO blocks.
const (
	sectionSequence = iota
	sectionSequenceArchive
	sectionBank
	sectionWaveArchive
	sectionPlayer
	sectionGroup
	sectionPlayer2
	sectionStream
	sectionCount
)

var sectionNames = [sectionCount]string{
	"sequence", "sequence archive", "bank", "wave archive",
	"player", "group", "player2", "stream",
}

// Fixed INFO record sizes; groups are variable.
var infoEntrySizes = [sectionCount]int{12, 4, 12, 4, 8, 0, 24, 12}

const (
	sdatHeaderSize  = 0x40
	blockHeaderSize = 8
	// SYMB and INFO start with eight record offsets and 24 reserved bytes.
	recordTableSize = sectionCount*4 + 24
	fatEntrySize    = 16
	noWaveArchiveID = 0xFFFF
)

type symbols struct {
	names [sectionCount][]string
	// sequence names inside each sequence archive
	archiveSequences [][]string
}

// Load parses an SDAT file.
func Load(data []byte) (*Archive, error) {
	r := binio.NewReader(data)
	if err := checkNitroHeader(r, "SDAT"); err != nil {
		return nil, err
	}

	symbOff := int(r.U32(0x10))
	infoOff := int(r.U32(0x18))
	fatOff := int(r.U32(0x20))
	if r.Err() != nil {
		return nil, wrapRead("SDAT header", r.Err())
	}
	if infoOff == 0 || fatOff == 0 {
		return nil, malformed("SDAT: missing INFO or FAT block")
	}

	files, err := readFAT(r, fatOff)
	if err != nil {
		return nil, err
	}

	var syms symbols
	if symbOff != 0 {
		if syms, err = readSymbols(r, symbOff); err != nil {
			return nil, err
		}
	}

	infos, err := readInfo(r, infoOff)
	if err != nil {
		return nil, err
	}

	a := &Archive{HasSymbols: symbOff != 0}
	for section := 0; section < sectionCount; section++ {
		names, entries := syms.names[section], infos[section]
		for i := 0; i < max(len(names), len(entries)); i++ {
			var name string
			if i < len(names) {
				name = names[i]
			}
			var info []byte
			if i < len(entries) {
				info = entries[i]
			}
			if err := a.addEntry(section, i, name, info, files, syms); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}

func (a *Archive) addEntry(section, i int, name string, info []byte, files [][]byte, syms symbols) error {
	if info == nil {
		a.appendNull(section, name)
		return nil
	}

	r := binio.NewReader(info)
	file := func() ([]byte, error) {
		id := int(r.U16(0))
		if id >= len(files) {
			return nil, malformed("SDAT: %s %d (%q) references file %d of %d", sectionNames[section], i, name, id, len(files))
		}
		return files[id], nil
	}

	switch section {
	case sectionSequence:
		data, err := file()
		if err != nil {
			return err
		}
		a.Sequences.Append(name, &Sequence{
			Data:               cloneBytes(data),
			Unknown02:          r.U16(2),
			BankID:             int(r.U16(4)),
			Volume:             r.U8(6),
			ChannelPressure:    r.U8(7),
			PolyphonicPressure: r.U8(8),
			PlayerID:           r.U8(9),
			Reserved:           r.U16(10),
		})

	case sectionBank:
		data, err := file()
		if err != nil {
			return err
		}
		instruments, err := ParseBankFile(data)
		if err != nil {
			return malformed("bank %d (%q): %v", i, name, err)
		}
		b := &Bank{Unknown02: r.U16(2), Instruments: instruments}
		for slot := range b.WaveArchiveIDs {
			id := int(r.U16(4 + slot*2))
			if id == noWaveArchiveID {
				id = NoWaveArchive
			}
			b.WaveArchiveIDs[slot] = id
		}
		a.Banks.Append(name, b)

	case sectionWaveArchive:
		data, err := file()
		if err != nil {
			return err
		}
		samples, err := ParseWaveArchiveFile(data)
		if err != nil {
			return malformed("wave archive %d (%q): %v", i, name, err)
		}
		a.WaveArchives.Append(name, &WaveArchive{Flags: r.U16(2), Samples: samples})

	case sectionSequenceArchive:
		data, err := file()
		if err != nil {
			return err
		}
		ssar := &SequenceArchive{Info: cloneBytes(info), Data: cloneBytes(data)}
		if i < len(syms.archiveSequences) {
			ssar.SequenceNames = syms.archiveSequences[i]
		}
		a.SequenceArchives.Append(name, ssar)

	case sectionStream:
		data, err := file()
		if err != nil {
			return err
		}
		a.Streams.Append(name, &Stream{Info: cloneBytes(info), Data: cloneBytes(data)})

	case sectionPlayer:
		a.Players.Append(name, cloneBytes(info))
	case sectionGroup:
		a.Groups.Append(name, cloneBytes(info))
	case sectionPlayer2:
		a.Players2.Append(name, cloneBytes(info))
	}
	return nil
}

func (a *Archive) appendNull(section int, name string) {
	switch section {
	case sectionSequence:
		a.Sequences.Append(name, nil)
	case sectionSequenceArchive:
		a.SequenceArchives.Append(name, nil)
	case sectionBank:
		a.Banks.Append(name, nil)
	case sectionWaveArchive:
		a.WaveArchives.Append(name, nil)
	case sectionPlayer:
		a.Players.Append(name, nil)
	case sectionGroup:
		a.Groups.Append(name, nil)
	case sectionPlayer2:
		a.Players2.Append(name, nil)
	case sectionStream:
		a.Streams.Append(name, nil)
	}
}

func readFAT(r *binio.Reader, off int) ([][]byte, error) {
	if !r.Magic(off, "FAT ") {
		return nil, malformed("SDAT: missing FAT block at 0x%X", off)
	}
	count := int(r.U32(off + blockHeaderSize))
	if r.Err() != nil {
		return nil, wrapRead("FAT", r.Err())
	}
	if count < 0 || off+12+count*fatEntrySize > r.Len() {
		return nil, malformed("SDAT: FAT with %d entries exceeds file size", count)
	}

	files := make([][]byte, count)
	for i := range files {
		entry := off + 12 + i*fatEntrySize
		files[i] = r.Bytes(int(r.U32(entry)), int(r.U32(entry+4)))
	}
	if r.Err() != nil {
		return nil, wrapRead("FAT file extents", r.Err())
	}
	return files, nil
}

func readSymbols(r *binio.Reader, off int) (symbols, error) {
	var syms symbols
	if !r.Magic(off, "SYMB") {
		return syms, malformed("SDAT: missing SYMB block at 0x%X", off)
	}

	readNames := func(rec int) []string {
		count := int(r.U32(rec))
		if r.Err() != nil || rec+4+count*4 > r.Len() {
			return nil
		}
		names := make([]string, count)
		for i := range names {
			if strOff := int(r.U32(rec + 4 + i*4)); strOff != 0 {
				names[i] = r.CString(off + strOff)
			}
		}
		return names
	}

	for section := 0; section < sectionCount; section++ {
		recOff := int(r.U32(off + blockHeaderSize + section*4))
		if recOff == 0 {
			continue
		}
		rec := off + recOff
		if section != sectionSequenceArchive {
			syms.names[section] = readNames(rec)
			continue
		}

		count := int(r.U32(rec))
		if r.Err() != nil || rec+4+count*8 > r.Len() {
			return syms, malformed("SDAT: sequence archive symbols exceed file size")
		}
		syms.names[section] = make([]string, count)
		syms.archiveSequences = make([][]string, count)
		for i := 0; i < count; i++ {
			if strOff := int(r.U32(rec + 4 + i*8)); strOff != 0 {
				syms.names[section][i] = r.CString(off + strOff)
			}
			if subOff := int(r.U32(rec + 8 + i*8)); subOff != 0 {
				syms.archiveSequences[i] = readNames(off + subOff)
			}
		}
	}
	if r.Err() != nil {
		return syms, wrapRead("SYMB", r.Err())
	}
	return syms, nil
}

func readInfo(r *binio.Reader, off int) ([sectionCount][][]byte, error) {
	var infos [sectionCount][][]byte
	if !r.Magic(off, "INFO") {
		return infos, malformed("SDAT: missing INFO block at 0x%X", off)
	}

	for section := 0; section < sectionCount; section++ {
		recOff := int(r.U32(off + blockHeaderSize + section*4))
		if recOff == 0 {
			continue
		}
		rec := off + recOff
		count := int(r.U32(rec))
		if r.Err() != nil || rec+4+count*4 > r.Len() {
			return infos, malformed("SDAT: %s info record exceeds file size", sectionNames[section])
		}

		entries := make([][]byte, count)
		for i := range entries {
			entryOff := int(r.U32(rec + 4 + i*4))
			if entryOff == 0 {
				continue
			}
			size := infoEntrySizes[section]
			if section == sectionGroup {
				size = 4 + 8*int(r.U32(off+entryOff))
			}
			entries[i] = r.Bytes(off+entryOff, size)
		}
		infos[section] = entries
	}
	if r.Err() != nil {
		return infos, wrapRead("INFO", r.Err())
	}
	return infos, nil
}
