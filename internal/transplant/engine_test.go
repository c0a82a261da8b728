package transplant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Terr/phoenix-wright-2-onifier/internal/named"
	"github.com/Terr/phoenix-wright-2-onifier/internal/sdat"
	"github.com/Terr/phoenix-wright-2-onifier/internal/testutil"
)

func pcm(wave int) sdat.NoteDefinition {
	return sdat.NoteDefinition{Type: sdat.NotePCM, WaveID: wave, BaseKey: 60, Attack: 127, Sustain: 127, Pan: 64}
}

// sourceArchive mimics the first game: BGM005 with its own bank and wave
// archive, plus a shared sound-effect archive.
func sourceArchive() *sdat.Archive {
	a := sdat.New()
	a.Sequences.Append("BGM002", &sdat.Sequence{Data: []byte{0x02}, BankID: 0, Volume: 100})
	a.Sequences.Append("BGM005", &sdat.Sequence{Data: []byte{0xFE, 0x05}, BankID: 1, Volume: 90, PlayerID: 1})

	a.Banks.Append("BANK_BGM002", &sdat.Bank{
		WaveArchiveIDs: [4]int{0, sdat.NoWaveArchive, sdat.NoWaveArchive, sdat.NoWaveArchive},
		Instruments:    []sdat.Instrument{&sdat.SingleNoteInstrument{Note: pcm(0)}},
	})
	a.Banks.Append("BANK_BGM005", &sdat.Bank{
		WaveArchiveIDs: [4]int{1, 2, sdat.NoWaveArchive, sdat.NoWaveArchive},
		Instruments: []sdat.Instrument{
			&sdat.SingleNoteInstrument{Note: pcm(0)},
			nil,
			&sdat.SingleNoteInstrument{Note: sdat.NoteDefinition{Type: sdat.NotePSGSquare, WaveID: 3}},
			&sdat.RangeInstrument{LowKey: 36, Keys: []sdat.NoteDefinition{pcm(3), pcm(7)}},
			&sdat.RegionalInstrument{Regions: []sdat.Region{
				{UpperKey: 60, Note: pcm(3)},
				{UpperKey: 127, Note: pcm(9)},
			}},
		},
	})

	a.WaveArchives.Append("WAVE_BGM002", &sdat.WaveArchive{Samples: [][]byte{{0x20}}})
	a.WaveArchives.Append("WAVE_BGM005", &sdat.WaveArchive{Samples: [][]byte{{0x50}, {0x51}}})
	a.WaveArchives.Append("WAVE_SE", &sdat.WaveArchive{Samples: [][]byte{{0xA0}, {0xA1}, {0xA2}, {0xA3}}})
	return a
}

// destArchive mimics the second game, where BGM071 exists but BGM077 has
// only a bank.
func destArchive() *sdat.Archive {
	a := sdat.New()
	a.Sequences.Append("BGM070", &sdat.Sequence{Data: []byte{0x70}, BankID: 0})
	a.Sequences.Append("BGM071", &sdat.Sequence{Data: []byte{0x71}, BankID: 2})

	a.Banks.Append("BANK_BGM070", &sdat.Bank{Instruments: []sdat.Instrument{}})
	a.Banks.Append("", nil)
	a.Banks.Append("BANK_BGM071", &sdat.Bank{
		WaveArchiveIDs: [4]int{4, 0, sdat.NoWaveArchive, sdat.NoWaveArchive},
		Instruments:    []sdat.Instrument{&sdat.SingleNoteInstrument{Note: pcm(1)}},
	})
	a.Banks.Append("BANK_BGM077", &sdat.Bank{
		WaveArchiveIDs: [4]int{5, 0, sdat.NoWaveArchive, sdat.NoWaveArchive},
		Instruments:    []sdat.Instrument{},
	})

	a.WaveArchives.Append("WAVE_SE", &sdat.WaveArchive{Samples: [][]byte{{0xB0}, {0xB1}}})
	a.WaveArchives.Append("WAVE_BGM071", &sdat.WaveArchive{Samples: [][]byte{{0x71}}})
	return a
}

func TestRun_TransplantsTrackIntoExistingSlot(t *testing.T) {
	src, dst := sourceArchive(), destArchive()
	oldIDs := [4]int{4, 0, sdat.NoWaveArchive, sdat.NoWaveArchive}

	report, err := New(testutil.NewTestLogger(t)).Run(src, dst, Plan{
		Tracks: []TrackPair{{From: "BGM005", To: "BGM071"}},
	})
	require.NoError(t, err)
	require.Len(t, report.Tracks, 1)

	wave, err := dst.WaveArchives.Find("WAVE_BGM071")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0x50}, {0x51}}, wave.Samples)

	bank, err := dst.Banks.Find("BANK_BGM071")
	require.NoError(t, err)
	assert.Equal(t, oldIDs, bank.WaveArchiveIDs)
	assert.Len(t, bank.Instruments, 5)

	bankPos, err := dst.Banks.Index("BANK_BGM071")
	require.NoError(t, err)
	seq, err := dst.Sequences.Find("BGM071")
	require.NoError(t, err)
	assert.Equal(t, bankPos, seq.BankID)
	assert.Equal(t, []byte{0xFE, 0x05}, seq.Data)
	assert.Equal(t, uint8(90), seq.Volume)

	res := report.Tracks[0]
	assert.Equal(t, Placement{Position: 1, Replaced: true}, res.WaveArchive)
	assert.Equal(t, Placement{Position: 2, Replaced: true}, res.Bank)
	assert.Equal(t, Placement{Position: 1, Replaced: true}, res.Sequence)
	assert.Zero(t, report.Appended())

	// Source entries are copied, not shared.
	srcBank, err := src.Banks.Find("BANK_BGM005")
	require.NoError(t, err)
	assert.Equal(t, [4]int{1, 2, sdat.NoWaveArchive, sdat.NoWaveArchive}, srcBank.WaveArchiveIDs)
	assert.NotSame(t, srcBank, bank)
	srcSeq, err := src.Sequences.Find("BGM005")
	require.NoError(t, err)
	assert.Equal(t, 1, srcSeq.BankID)
}

func TestRun_AppendsMissingSequenceAndWaveArchive(t *testing.T) {
	src, dst := sourceArchive(), destArchive()

	report, err := New(nil).Run(src, dst, Plan{
		Tracks: []TrackPair{{From: "BGM005", To: "BGM077"}},
	})
	require.NoError(t, err)

	res := report.Tracks[0]
	assert.Equal(t, Placement{Position: 2, Replaced: false}, res.WaveArchive)
	assert.Equal(t, Placement{Position: 3, Replaced: true}, res.Bank)
	assert.Equal(t, Placement{Position: 2, Replaced: false}, res.Sequence)
	assert.Equal(t, 1, report.Appended())

	seq, err := dst.Sequences.Find("BGM077")
	require.NoError(t, err)
	assert.Equal(t, 3, seq.BankID)
	assert.Equal(t, 3, dst.Sequences.Len())
	assert.Equal(t, 3, dst.WaveArchives.Len())
}

func TestRun_MissingNameLeavesDestinationUntouched(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
		want string
	}{
		{
			name: "unknown source track",
			plan: Plan{Tracks: []TrackPair{{From: "BGM005", To: "BGM071"}, {From: "BGM999", To: "BGM070"}}},
			want: "BGM999",
		},
		{
			name: "destination bank absent",
			plan: Plan{Tracks: []TrackPair{{From: "BGM005", To: "BGM090"}}},
			want: "BANK_BGM090",
		},
		{
			name: "import position out of range",
			plan: Plan{
				Tracks: []TrackPair{{From: "BGM005", To: "BGM071"}},
				Import: &BulkImport{SourceArchive: "WAVE_SE", DestArchive: "WAVE_SE", Positions: []int{1, 4}},
			},
			want: "sample 4",
		},
		{
			name: "import archive absent",
			plan: Plan{Import: &BulkImport{SourceArchive: "WAVE_VOICE", DestArchive: "WAVE_SE"}},
			want: "WAVE_VOICE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dst := sourceArchive(), destArchive()
			report, err := New(testutil.NewTestLogger(t)).Run(src, dst, tt.plan)
			require.Error(t, err)
			assert.Nil(t, report)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, err, named.ErrNotFound)
			assert.Contains(t, err.Error(), tt.want)

			assert.Equal(t, destArchive(), dst)
			assert.Equal(t, sourceArchive(), src)
		})
	}
}

func TestRun_RejectsInvalidPlan(t *testing.T) {
	src, dst := sourceArchive(), destArchive()
	_, err := New(nil).Run(src, dst, Plan{
		Tracks: []TrackPair{{From: "BGM005", To: "BGM071"}, {From: "BGM002", To: "BGM071"}},
	})
	assert.ErrorIs(t, err, ErrInvalidPlan)
	assert.Equal(t, destArchive(), dst)
}

func TestRun_ImportsBeforeRemapping(t *testing.T) {
	src, dst := sourceArchive(), destArchive()

	report, err := New(testutil.NewTestLogger(t)).Run(src, dst, Plan{
		Tracks:    []TrackPair{{From: "BGM005", To: "BGM071"}},
		WaveRemap: map[int]int{3: 2, 9: 4},
		Import:    &BulkImport{SourceArchive: "WAVE_SE", DestArchive: "WAVE_SE", Positions: []int{3, 0, 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.ImportedSamples)

	shared, err := dst.WaveArchives.Find("WAVE_SE")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0xB0}, {0xB1}, {0xA3}, {0xA0}, {0xA3}}, shared.Samples)

	bank, err := dst.Banks.Find("BANK_BGM071")
	require.NoError(t, err)
	var waves []int
	sdat.ForEachNote(bank.Instruments, func(n *sdat.NoteDefinition) {
		waves = append(waves, n.WaveID)
	})
	// pcm(0), psg(3), drum pcm(3), pcm(7), split pcm(3), pcm(9)
	assert.Equal(t, []int{0, 3, 2, 7, 2, 4}, waves)
	assert.Equal(t, 3, report.Tracks[0].RemappedNotes)
	assert.Equal(t, 3, report.RemappedNotes())

	srcShared, err := src.WaveArchives.Find("WAVE_SE")
	require.NoError(t, err)
	assert.Len(t, srcShared.Samples, 4)
}

func TestRun_TracksInOrder(t *testing.T) {
	src, dst := sourceArchive(), destArchive()

	report, err := New(nil).Run(src, dst, Plan{
		Tracks: []TrackPair{
			{From: "BGM005", To: "BGM077"},
			{From: "BGM002", To: "BGM070"},
		},
	})
	require.NoError(t, err)
	require.Len(t, report.Tracks, 2)
	assert.Equal(t, "BGM077", report.Tracks[0].Pair.To)
	assert.Equal(t, "BGM070", report.Tracks[1].Pair.To)

	seq, err := dst.Sequences.Find("BGM070")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, seq.Data)
	assert.Equal(t, 0, seq.BankID)
}

func TestImportSamples_EmptyPositions(t *testing.T) {
	src, dst := sourceArchive(), destArchive()
	n, err := ImportSamples(src, dst, BulkImport{SourceArchive: "WAVE_SE", DestArchive: "WAVE_SE"})
	require.NoError(t, err)
	assert.Zero(t, n)

	shared, err := dst.WaveArchives.Find("WAVE_SE")
	require.NoError(t, err)
	assert.Len(t, shared.Samples, 2)
}

func TestTransplantBank_NullDestinationBank(t *testing.T) {
	src, dst := sourceArchive(), destArchive()
	dst.Banks.Set("BANK_BGM071", nil)

	_, _, err := TransplantBank(src, dst, TrackPair{From: "BGM005", To: "BGM071"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemapNotes(t *testing.T) {
	tests := []struct {
		name  string
		table map[int]int
		notes []sdat.NoteDefinition
		want  []int
		count int
	}{
		{
			name:  "empty table",
			notes: []sdat.NoteDefinition{pcm(1), pcm(2)},
			want:  []int{1, 2},
		},
		{
			name:  "keys outside the table are kept",
			table: map[int]int{1: 10},
			notes: []sdat.NoteDefinition{pcm(1), pcm(2), pcm(1)},
			want:  []int{10, 2, 10},
			count: 2,
		},
		{
			name:  "not chained",
			table: map[int]int{1: 2, 2: 3},
			notes: []sdat.NoteDefinition{pcm(1), pcm(2)},
			want:  []int{2, 3},
			count: 2,
		},
		{
			name:  "psg notes are skipped",
			table: map[int]int{3: 30},
			notes: []sdat.NoteDefinition{
				{Type: sdat.NotePSGSquare, WaveID: 3},
				{Type: sdat.NotePSGNoise, WaveID: 3},
				{Type: sdat.NoteDirectPCM, WaveID: 3},
			},
			want:  []int{3, 3, 30},
			count: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank := &sdat.Bank{Instruments: []sdat.Instrument{&sdat.RangeInstrument{Keys: tt.notes}}}
			assert.Equal(t, tt.count, RemapNotes(bank, tt.table))

			var got []int
			sdat.ForEachNote(bank.Instruments, func(n *sdat.NoteDefinition) {
				got = append(got, n.WaveID)
			})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr bool
	}{
		{name: "empty", plan: Plan{}},
		{name: "valid", plan: Plan{
			Tracks:    []TrackPair{{From: "A", To: "B"}, {From: "C", To: "D"}},
			WaveRemap: map[int]int{1: 2},
			Import:    &BulkImport{SourceArchive: "WAVE_SE", DestArchive: "WAVE_SE", Positions: []int{0, 0}},
		}},
		{name: "empty name", plan: Plan{Tracks: []TrackPair{{From: "A"}}}, wantErr: true},
		{name: "duplicate source", plan: Plan{Tracks: []TrackPair{{From: "A", To: "B"}, {From: "A", To: "C"}}}, wantErr: true},
		{name: "duplicate destination", plan: Plan{Tracks: []TrackPair{{From: "A", To: "B"}, {From: "C", To: "B"}}}, wantErr: true},
		{name: "remap out of range", plan: Plan{WaveRemap: map[int]int{1: 0x10000}}, wantErr: true},
		{name: "negative position", plan: Plan{Import: &BulkImport{SourceArchive: "A", DestArchive: "B", Positions: []int{-1}}}, wantErr: true},
		{name: "import without names", plan: Plan{Import: &BulkImport{}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPlan)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, "WAVE_BGM071", WaveArchiveName("BGM071"))
	assert.Equal(t, "BANK_BGM071", BankName("BGM071"))
	assert.Equal(t, "BGM005 -> BGM071", TrackPair{From: "BGM005", To: "BGM071"}.String())
}
