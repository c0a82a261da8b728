package sdat

import (
	"fmt"

	"github.com/Terr/phoenix-wright-2-onifier/internal/binio"
)

// ParseBankFile decodes the instruments of an SBNK file. Wave archive IDs
// live in the SDAT INFO block and are filled in by the archive loader.
func ParseBankFile(data []byte) ([]Instrument, error) {
	r := binio.NewReader(data)
	if err := checkNitroHeader(r, "SBNK"); err != nil {
		return nil, err
	}
	if !r.Magic(dataBlockOffset, "DATA") {
		return nil, malformed("SBNK: missing DATA block")
	}

	count := int(r.U32(dataCountOffset))
	if r.Err() != nil {
		return nil, wrapRead("SBNK instrument count", r.Err())
	}
	if dataItemsOffset+count*4 > len(data) {
		return nil, malformed("SBNK: %d instrument records exceed file size", count)
	}

	instruments := make([]Instrument, count)
	for i := 0; i < count; i++ {
		rec := dataItemsOffset + i*4
		typ := r.U8(rec)
		off := int(r.U16(rec + 1))

		inst, err := parseInstrument(r, typ, off)
		if err != nil {
			return nil, malformed("SBNK: instrument %d (type %d at 0x%X): %v", i, typ, off, err)
		}
		instruments[i] = inst
	}
	return instruments, nil
}

func parseInstrument(r *binio.Reader, typ uint8, off int) (Instrument, error) {
	switch {
	case typ == 0:
		return nil, nil

	case typ < instrumentDrumSet:
		note := readNote(r, NoteType(typ), off)
		if r.Err() != nil {
			return nil, r.Err()
		}
		return &SingleNoteInstrument{Note: note}, nil

	case typ == instrumentDrumSet:
		low, high := r.U8(off), r.U8(off+1)
		if r.Err() != nil {
			return nil, r.Err()
		}
		if high < low {
			return nil, fmt.Errorf("drum set key range %d-%d", low, high)
		}
		inst := &RangeInstrument{LowKey: low, Keys: make([]NoteDefinition, int(high-low)+1)}
		for k := range inst.Keys {
			entry := off + 2 + k*regionEntrySize
			typ, err := readEntryType(r, entry)
			if err != nil {
				return nil, fmt.Errorf("drum set key %d: %w", int(low)+k, err)
			}
			inst.Keys[k] = readNote(r, typ, entry+2)
		}
		return inst, r.Err()

	case typ == instrumentKeySplit:
		inst := &RegionalInstrument{}
		for k := 0; k < keySplitRegions; k++ {
			upper := r.U8(off + k)
			if upper == 0 {
				break
			}
			inst.Regions = append(inst.Regions, Region{UpperKey: upper})
		}
		for k := range inst.Regions {
			entry := off + keySplitRegions + k*regionEntrySize
			typ, err := readEntryType(r, entry)
			if err != nil {
				return nil, fmt.Errorf("key split region %d: %w", k, err)
			}
			inst.Regions[k].Note = readNote(r, typ, entry+2)
		}
		return inst, r.Err()
	}
	return nil, fmt.Errorf("unknown instrument type %d", typ)
}

// readEntryType reads the u16 note type of a drum set or key split entry.
// Only the low byte carries a type.
func readEntryType(r *binio.Reader, off int) (NoteType, error) {
	v := r.U16(off)
	if v > 0xFF {
		return 0, fmt.Errorf("note type 0x%04X does not fit in a byte", v)
	}
	return NoteType(v), nil
}

func readNote(r *binio.Reader, typ NoteType, off int) NoteDefinition {
	return NoteDefinition{
		Type:            typ,
		WaveID:          int(r.U16(off)),
		WaveArchiveSlot: int(r.U16(off + 2)),
		BaseKey:         r.U8(off + 4),
		Attack:          r.U8(off + 5),
		Decay:           r.U8(off + 6),
		Sustain:         r.U8(off + 7),
		Release:         r.U8(off + 8),
		Pan:             r.U8(off + 9),
	}
}

func writeNote(w *binio.Writer, n NoteDefinition) {
	w.U16(uint16(n.WaveID))
	w.U16(uint16(n.WaveArchiveSlot))
	w.U8(n.BaseKey)
	w.U8(n.Attack)
	w.U8(n.Decay)
	w.U8(n.Sustain)
	w.U8(n.Release)
	w.U8(n.Pan)
}

// BankFile encodes instruments as an SBNK file.
func BankFile(instruments []Instrument) ([]byte, error) {
	var w binio.Writer
	writeNitroHeader(&w, "SBNK", nitroHeaderSize, 1)
	block := startDataBlock(&w, len(instruments))

	table := w.Len()
	w.Zero(4 * len(instruments))

	for i, inst := range instruments {
		if inst == nil {
			continue
		}
		off := w.Len()
		if off > 0xFFFF {
			return nil, malformed("SBNK: instrument %d offset 0x%X exceeds 16 bits", i, off)
		}
		if err := writeInstrument(&w, inst); err != nil {
			return nil, malformed("SBNK: instrument %d: %v", i, err)
		}
		w.PutU32(table+i*4, uint32(inst.recordType())|uint32(off)<<8)
	}

	w.Align(4)
	finishDataBlock(&w, block)
	return finishNitro(&w), nil
}

func writeInstrument(w *binio.Writer, inst Instrument) error {
	switch v := inst.(type) {
	case *SingleNoteInstrument:
		if v.Note.Type == NoteNone || uint8(v.Note.Type) >= instrumentDrumSet {
			return fmt.Errorf("single note has invalid type %d", v.Note.Type)
		}
		writeNote(w, v.Note)

	case *RangeInstrument:
		if len(v.Keys) == 0 || int(v.LowKey)+len(v.Keys) > 0x100 {
			return fmt.Errorf("drum set with %d keys from %d", len(v.Keys), v.LowKey)
		}
		w.U8(v.LowKey)
		w.U8(v.HighKey())
		for _, n := range v.Keys {
			w.U16(uint16(n.Type))
			writeNote(w, n)
		}

	case *RegionalInstrument:
		if len(v.Regions) == 0 || len(v.Regions) > keySplitRegions {
			return fmt.Errorf("key split with %d regions", len(v.Regions))
		}
		for k := 0; k < keySplitRegions; k++ {
			if k < len(v.Regions) {
				w.U8(v.Regions[k].UpperKey)
			} else {
				w.U8(0)
			}
		}
		for _, reg := range v.Regions {
			w.U16(uint16(reg.Note.Type))
			writeNote(w, reg.Note)
		}

	default:
		return fmt.Errorf("unsupported instrument %T", inst)
	}
	return nil
}
