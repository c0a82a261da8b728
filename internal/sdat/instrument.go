package sdat

// NoteType identifies how a note definition produces sound.
type NoteType uint8

// Note types. Only PCM and DirectPCM notes reference a sample by index;
// for PSG notes WaveID holds a duty cycle or is unused.
const (
	NoteNone      NoteType = 0
	NotePCM       NoteType = 1
	NotePSGSquare NoteType = 2
	NotePSGNoise  NoteType = 3
	NoteDirectPCM NoteType = 4
	NoteNull      NoteType = 5
)

// Instrument record types that are not single notes.
const (
	instrumentDrumSet  = 16
	instrumentKeySplit = 17
)

const (
	noteDefinitionSize = 10
	regionEntrySize    = 2 + noteDefinitionSize
	keySplitRegions    = 8
)

// ReferencesSample reports whether WaveID is an index into a wave archive.
func (t NoteType) ReferencesSample() bool {
	return t == NotePCM || t == NoteDirectPCM
}

// NoteDefinition is the smallest playable unit of an instrument.
type NoteDefinition struct {
	Type            NoteType
	WaveID          int // sample index within the wave archive
	WaveArchiveSlot int // index into the owning bank's WaveArchiveIDs
	BaseKey         uint8
	Attack          uint8
	Decay           uint8
	Sustain         uint8
	Release         uint8
	Pan             uint8
}

// Instrument is one of SingleNoteInstrument, RangeInstrument or
// RegionalInstrument. A nil Instrument is an empty bank slot.
type Instrument interface {
	// Notes returns pointers to every note definition the instrument owns.
	Notes() []*NoteDefinition
	recordType() uint8
	clone() Instrument
}

// SingleNoteInstrument plays one note definition across the whole keyboard.
type SingleNoteInstrument struct {
	Note NoteDefinition
}

func (i *SingleNoteInstrument) Notes() []*NoteDefinition {
	return []*NoteDefinition{&i.Note}
}

func (i *SingleNoteInstrument) recordType() uint8 { return uint8(i.Note.Type) }

func (i *SingleNoteInstrument) clone() Instrument {
	c := *i
	return &c
}

// RangeInstrument (a drum set) assigns one note definition to each key from
// LowKey upward.
type RangeInstrument struct {
	LowKey uint8
	Keys   []NoteDefinition
}

// HighKey returns the last key covered by the instrument.
func (i *RangeInstrument) HighKey() uint8 {
	return i.LowKey + uint8(len(i.Keys)) - 1
}

func (i *RangeInstrument) Notes() []*NoteDefinition {
	out := make([]*NoteDefinition, len(i.Keys))
	for k := range i.Keys {
		out[k] = &i.Keys[k]
	}
	return out
}

func (i *RangeInstrument) recordType() uint8 { return instrumentDrumSet }

func (i *RangeInstrument) clone() Instrument {
	c := &RangeInstrument{LowKey: i.LowKey, Keys: make([]NoteDefinition, len(i.Keys))}
	copy(c.Keys, i.Keys)
	return c
}

// Region is one key-split zone; it covers keys up to and including UpperKey.
type Region struct {
	UpperKey uint8
	Note     NoteDefinition
}

// RegionalInstrument (a key split) holds up to eight regions.
type RegionalInstrument struct {
	Regions []Region
}

func (i *RegionalInstrument) Notes() []*NoteDefinition {
	out := make([]*NoteDefinition, len(i.Regions))
	for k := range i.Regions {
		out[k] = &i.Regions[k].Note
	}
	return out
}

func (i *RegionalInstrument) recordType() uint8 { return instrumentKeySplit }

func (i *RegionalInstrument) clone() Instrument {
	c := &RegionalInstrument{Regions: make([]Region, len(i.Regions))}
	copy(c.Regions, i.Regions)
	return c
}

// ForEachNote calls fn for every note definition reachable from instruments,
// skipping empty slots.
func ForEachNote(instruments []Instrument, fn func(*NoteDefinition)) {
	for _, inst := range instruments {
		if inst == nil {
			continue
		}
		for _, n := range inst.Notes() {
			fn(n)
		}
	}
}
