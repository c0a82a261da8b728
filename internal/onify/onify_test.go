package onify

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Terr/phoenix-wright-2-onifier/internal/nds"
	"github.com/Terr/phoenix-wright-2-onifier/internal/sdat"
	"github.com/Terr/phoenix-wright-2-onifier/internal/testutil"
	"github.com/Terr/phoenix-wright-2-onifier/internal/transplant"
)

func setup(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		SourcePath: testutil.WriteROM(t, dir, "pw1.nds", testutil.SourceArchive()),
		DestPath:   testutil.WriteROM(t, dir, "pw2.nds", testutil.DestArchive()),
		OutputPath: filepath.Join(dir, "out.nds"),
		Plan: transplant.Plan{
			Tracks: []transplant.TrackPair{{From: "BGM005", To: "BGM071"}},
		},
	}
}

func TestRun_WritesPatchedROM(t *testing.T) {
	opts := setup(t)
	destBefore, err := os.ReadFile(opts.DestPath)
	require.NoError(t, err)

	res, err := Run(opts, testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, opts.OutputPath, res.OutputPath)
	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Report.Tracks, 1)

	data, err := os.ReadFile(opts.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, res.BytesWritten, len(data))

	rom, err := nds.Load(data)
	require.NoError(t, err)
	script, err := rom.ReadFile("data/script/sc0.bin")
	require.NoError(t, err)
	assert.Equal(t, "court record", string(script))

	raw, err := rom.ReadFile(DefaultSoundDataPath)
	require.NoError(t, err)
	assert.Equal(t, res.SoundDataSize, len(raw))
	archive, err := sdat.Load(raw)
	require.NoError(t, err)

	seq, err := archive.Sequences.Find("BGM071")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFE, 0x05, 0xFF}, seq.Data)
	bankPos, err := archive.Banks.Index("BANK_BGM071")
	require.NoError(t, err)
	assert.Equal(t, bankPos, seq.BankID)

	bank, err := archive.Banks.Find("BANK_BGM071")
	require.NoError(t, err)
	assert.Equal(t, [4]int{2, 0, sdat.NoWaveArchive, sdat.NoWaveArchive}, bank.WaveArchiveIDs)
	assert.Len(t, bank.Instruments, 3)

	wave, err := archive.WaveArchives.Find("WAVE_BGM071")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0x50, 0x50}, {0x51}}, wave.Samples)

	// The input files are never touched.
	destAfter, err := os.ReadFile(opts.DestPath)
	require.NoError(t, err)
	assert.Equal(t, destBefore, destAfter)
}

func TestRun_WithBulkImportAndRemap(t *testing.T) {
	opts := setup(t)
	opts.Plan.Import = &transplant.BulkImport{SourceArchive: "WAVE_SE", DestArchive: "WAVE_SE", Positions: []int{3, 1}}
	opts.Plan.WaveRemap = map[int]int{3: 2, 1: 3}

	res, err := Run(opts, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Report.ImportedSamples)

	data, err := os.ReadFile(opts.OutputPath)
	require.NoError(t, err)
	rom, err := nds.Load(data)
	require.NoError(t, err)
	raw, err := rom.ReadFile(DefaultSoundDataPath)
	require.NoError(t, err)
	archive, err := sdat.Load(raw)
	require.NoError(t, err)

	shared, err := archive.WaveArchives.Find("WAVE_SE")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0xB0}, {0xB1}, {0xA3}, {0xA1}}, shared.Samples)

	bank, err := archive.Banks.Find("BANK_BGM071")
	require.NoError(t, err)
	var waves []int
	sdat.ForEachNote(bank.Instruments, func(n *sdat.NoteDefinition) {
		waves = append(waves, n.WaveID)
	})
	assert.Equal(t, []int{0, 3, 2}, waves)
}

func TestRun_OutputExists(t *testing.T) {
	opts := setup(t)
	require.NoError(t, os.WriteFile(opts.OutputPath, []byte("keep me"), 0o644))
	// Inputs are not read before the output check.
	opts.SourcePath = filepath.Join(t.TempDir(), "missing.nds")

	_, err := Run(opts, nil)
	assert.ErrorIs(t, err, ErrOutputExists)

	data, err := os.ReadFile(opts.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestRun_OpenFailures(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, opts *Options)
	}{
		{
			name: "source missing",
			prepare: func(t *testing.T, opts *Options) {
				opts.SourcePath = filepath.Join(t.TempDir(), "missing.nds")
			},
		},
		{
			name: "destination is not a ROM",
			prepare: func(t *testing.T, opts *Options) {
				require.NoError(t, os.WriteFile(opts.DestPath, []byte("not a rom"), 0o644))
			},
		},
		{
			name: "no sound archive at path",
			prepare: func(t *testing.T, opts *Options) {
				opts.SoundDataPath = "data/sound/missing.sdat"
			},
		},
		{
			name: "sound archive is malformed",
			prepare: func(t *testing.T, opts *Options) {
				rom, err := nds.Build("PWAA2", "ATES", []nds.File{{Path: DefaultSoundDataPath, Data: []byte("SDAT junk")}})
				require.NoError(t, err)
				require.NoError(t, os.WriteFile(opts.SourcePath, rom, 0o644))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := setup(t)
			tt.prepare(t, &opts)

			_, err := Run(opts, nil)
			assert.ErrorIs(t, err, ErrOpenContainer)
			assert.NoFileExists(t, opts.OutputPath)
		})
	}
}

func TestRun_MissingNameWritesNothing(t *testing.T) {
	opts := setup(t)
	opts.Plan.Tracks = append(opts.Plan.Tracks, transplant.TrackPair{From: "BGM999", To: "BGM070"})

	_, err := Run(opts, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "BGM999")
	assert.NoFileExists(t, opts.OutputPath)
}

func TestRun_LogsRunID(t *testing.T) {
	opts := setup(t)
	logger, buf := testutil.NewCaptureLogger()

	res, err := Run(opts, logger)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.Equal(t, res.RunID, rec["run_id"])
	}
}

func TestWriteOutput_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.nds")
	require.NoError(t, writeOutput(path, []byte("first")))
	assert.ErrorIs(t, writeOutput(path, []byte("second")), ErrOutputExists)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestOpen(t *testing.T) {
	path := testutil.WriteROM(t, t.TempDir(), "pw2.nds", testutil.DestArchive())
	rom, archive, err := Open(path, "")
	require.NoError(t, err)
	assert.Equal(t, "PWAA", rom.Title())
	assert.Equal(t, []string{"BGM070", "BGM071"}, archive.Sequences.Names())
}
