package sdat

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachNote_VisitsEveryVariant(t *testing.T) {
	var waves []int
	ForEachNote(testInstruments(), func(n *NoteDefinition) {
		waves = append(waves, n.WaveID)
	})
	assert.Equal(t, []int{0, 3, 1, 2, 1, 0, 1}, waves)
}

func TestForEachNote_MutatesInPlace(t *testing.T) {
	instruments := testInstruments()
	ForEachNote(instruments, func(n *NoteDefinition) {
		n.WaveID += 100
	})

	rng := instruments[3].(*RangeInstrument)
	assert.Equal(t, 101, rng.Keys[0].WaveID)
	split := instruments[4].(*RegionalInstrument)
	assert.Equal(t, 101, split.Regions[1].Note.WaveID)
}

func TestNoteType_ReferencesSample(t *testing.T) {
	assert.True(t, NotePCM.ReferencesSample())
	assert.True(t, NoteDirectPCM.ReferencesSample())
	assert.False(t, NotePSGSquare.ReferencesSample())
	assert.False(t, NotePSGNoise.ReferencesSample())
}

func TestRangeInstrument_HighKey(t *testing.T) {
	inst := &RangeInstrument{LowKey: 36, Keys: make([]NoteDefinition, 12)}
	assert.Equal(t, uint8(47), inst.HighKey())
}

func TestBankFile_RoundTrip(t *testing.T) {
	data, err := BankFile(testInstruments())
	require.NoError(t, err)
	assert.Equal(t, "SBNK", string(data[:4]))
	assert.Zero(t, len(data)%4)

	parsed, err := ParseBankFile(data)
	require.NoError(t, err)
	assert.Equal(t, testInstruments(), parsed)
}

func TestBankFile_RejectsInvalidInstruments(t *testing.T) {
	tests := []struct {
		name string
		inst Instrument
	}{
		{name: "single note without type", inst: &SingleNoteInstrument{}},
		{name: "empty drum set", inst: &RangeInstrument{LowKey: 10}},
		{name: "too many regions", inst: &RegionalInstrument{Regions: make([]Region, 9)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BankFile([]Instrument{tt.inst})
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseBankFile_RejectsWideEntryType(t *testing.T) {
	tests := []struct {
		name      string
		inst      Instrument
		typeField int // offset of the first entry's u16 type from the instrument
	}{
		{
			name:      "drum set",
			inst:      &RangeInstrument{LowKey: 60, Keys: []NoteDefinition{{Type: NotePCM, WaveID: 1}}},
			typeField: 2,
		},
		{
			name:      "key split",
			inst:      &RegionalInstrument{Regions: []Region{{UpperKey: 127, Note: NoteDefinition{Type: NotePCM, WaveID: 1}}}},
			typeField: keySplitRegions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := BankFile([]Instrument{tt.inst})
			require.NoError(t, err)
			_, err = ParseBankFile(data)
			require.NoError(t, err)

			off := int(binary.LittleEndian.Uint16(data[dataItemsOffset+1:]))
			data[off+tt.typeField+1] = 0x01

			_, err = ParseBankFile(data)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestWaveArchiveFile_RoundTrip(t *testing.T) {
	samples := [][]byte{{1, 2, 3}, {}, {4, 5}}
	parsed, err := ParseWaveArchiveFile(WaveArchiveFile(samples))
	require.NoError(t, err)
	assert.Equal(t, samples, parsed)
}
