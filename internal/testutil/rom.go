package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Terr/phoenix-wright-2-onifier/internal/nds"
	"github.com/Terr/phoenix-wright-2-onifier/internal/sdat"
)

// SoundDataPath is where fixture ROMs keep their sound archive.
const SoundDataPath = "sound_data.sdat"

func pcm(wave int) sdat.NoteDefinition {
	return sdat.NoteDefinition{Type: sdat.NotePCM, WaveID: wave, BaseKey: 60, Attack: 127, Sustain: 127, Pan: 64}
}

// SourceArchive returns a small first-game sound archive holding BGM005
// and a shared sound-effect archive WAVE_SE with four samples.
func SourceArchive() *sdat.Archive {
	a := sdat.New()
	a.Sequences.Append("BGM005", &sdat.Sequence{Data: []byte{0xFE, 0x05, 0xFF}, BankID: 0, Volume: 90, PlayerID: 1})
	a.Banks.Append("BANK_BGM005", &sdat.Bank{
		WaveArchiveIDs: [4]int{0, 1, sdat.NoWaveArchive, sdat.NoWaveArchive},
		Instruments: []sdat.Instrument{
			&sdat.SingleNoteInstrument{Note: pcm(0)},
			nil,
			&sdat.RegionalInstrument{Regions: []sdat.Region{
				{UpperKey: 60, Note: pcm(1)},
				{UpperKey: 127, Note: pcm(3)},
			}},
		},
	})
	a.WaveArchives.Append("WAVE_BGM005", &sdat.WaveArchive{Samples: [][]byte{{0x50, 0x50}, {0x51}}})
	a.WaveArchives.Append("WAVE_SE", &sdat.WaveArchive{Samples: [][]byte{{0xA0}, {0xA1}, {0xA2}, {0xA3}}})
	return a
}

// DestArchive returns a small second-game sound archive where BGM071 and
// its bank exist.
func DestArchive() *sdat.Archive {
	a := sdat.New()
	a.Sequences.Append("BGM070", &sdat.Sequence{Data: []byte{0x70}, BankID: 0})
	a.Sequences.Append("BGM071", &sdat.Sequence{Data: []byte{0x71}, BankID: 1})
	a.Banks.Append("BANK_BGM070", &sdat.Bank{
		WaveArchiveIDs: [4]int{0, sdat.NoWaveArchive, sdat.NoWaveArchive, sdat.NoWaveArchive},
		Instruments:    []sdat.Instrument{&sdat.SingleNoteInstrument{Note: pcm(0)}},
	})
	a.Banks.Append("BANK_BGM071", &sdat.Bank{
		WaveArchiveIDs: [4]int{2, 0, sdat.NoWaveArchive, sdat.NoWaveArchive},
		Instruments:    []sdat.Instrument{&sdat.SingleNoteInstrument{Note: pcm(0)}},
	})
	a.WaveArchives.Append("WAVE_SE", &sdat.WaveArchive{Samples: [][]byte{{0xB0}, {0xB1}}})
	a.WaveArchives.Append("WAVE_BGM070", &sdat.WaveArchive{Samples: [][]byte{{0x70}}})
	a.WaveArchives.Append("WAVE_BGM071", &sdat.WaveArchive{Samples: [][]byte{{0x71}}})
	return a
}

// BuildROM returns a ROM image holding archive at SoundDataPath next to a
// couple of unrelated files.
func BuildROM(t testing.TB, archive *sdat.Archive) []byte {
	t.Helper()
	soundData, err := archive.Save()
	require.NoError(t, err)

	rom, err := nds.Build("PWAA", "ATES", []nds.File{
		{Path: "data/script/sc0.bin", Data: []byte("court record")},
		{Path: SoundDataPath, Data: soundData},
		{Path: "data/bg.bin", Data: []byte("courtroom")},
	})
	require.NoError(t, err)
	return rom
}

// WriteROM writes BuildROM's image to dir/name and returns the path.
func WriteROM(t testing.TB, dir, name string, archive *sdat.Archive) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, BuildROM(t, archive), 0o644))
	return path
}
