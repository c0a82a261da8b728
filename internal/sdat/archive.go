// Package sdat reads and writes Nintendo DS sound archives (SDAT) and the
// bank (SBNK) and wave archive (SWAR) files nested inside them.
//
// An Archive exposes each SDAT section as a named list. A value's position
// in its list is the ID other entries use to reference it, e.g. a
// Sequence's BankID is a position in Banks.
package sdat

import (
	"errors"

	"github.com/Terr/phoenix-wright-2-onifier/internal/named"
)

// ErrMalformed is returned when data does not follow the expected layout.
var ErrMalformed = errors.New("malformed sound data")

// NoWaveArchive marks an unused slot in Bank.WaveArchiveIDs.
const NoWaveArchive = -1

// Archive is the in-memory form of an SDAT file. Nil values are null INFO
// entries; they keep their position so later IDs stay valid.
type Archive struct {
	Sequences        named.List[*Sequence]
	SequenceArchives named.List[*SequenceArchive]
	Banks            named.List[*Bank]
	WaveArchives     named.List[*WaveArchive]
	Players          named.List[[]byte]
	Groups           named.List[[]byte]
	Players2         named.List[[]byte]
	Streams          named.List[*Stream]

	// HasSymbols is false when the file carried no SYMB block.
	HasSymbols bool
}

// New returns an empty archive with a symbol table.
func New() *Archive {
	return &Archive{HasSymbols: true}
}

// Sequence is a playable track (SSEQ) and its INFO record.
type Sequence struct {
	Data               []byte
	Unknown02          uint16
	BankID             int
	Volume             uint8
	ChannelPressure    uint8
	PolyphonicPressure uint8
	PlayerID           uint8
	Reserved           uint16
}

// Clone returns a deep copy.
func (s *Sequence) Clone() *Sequence {
	c := *s
	c.Data = cloneBytes(s.Data)
	return &c
}

// Bank is an instrument set (SBNK) plus the wave archives it draws from.
type Bank struct {
	Unknown02 uint16
	// WaveArchiveIDs are positions in Archive.WaveArchives, or NoWaveArchive.
	WaveArchiveIDs [4]int
	Instruments    []Instrument
}

// Clone returns a deep copy.
func (b *Bank) Clone() *Bank {
	c := &Bank{
		Unknown02:      b.Unknown02,
		WaveArchiveIDs: b.WaveArchiveIDs,
		Instruments:    make([]Instrument, len(b.Instruments)),
	}
	for i, inst := range b.Instruments {
		if inst != nil {
			c.Instruments[i] = inst.clone()
		}
	}
	return c
}

// WaveArchive is an ordered set of samples (SWAR). Each sample is kept as
// the verbatim SWAV body.
type WaveArchive struct {
	Flags   uint16
	Samples [][]byte
}

// Clone returns a deep copy.
func (w *WaveArchive) Clone() *WaveArchive {
	c := &WaveArchive{Flags: w.Flags, Samples: make([][]byte, len(w.Samples))}
	for i, s := range w.Samples {
		c.Samples[i] = cloneBytes(s)
	}
	return c
}

// SequenceArchive is an SSAR file; its contents are not interpreted.
type SequenceArchive struct {
	Info          []byte // INFO record; the file ID is rewritten on save
	Data          []byte
	SequenceNames []string
}

// Stream is an STRM file; its contents are not interpreted.
type Stream struct {
	Info []byte // INFO record; the file ID is rewritten on save
	Data []byte
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
