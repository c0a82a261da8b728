// Package onify turns a second-game ROM into one that plays first-game music.
// It reads the sound archives out of both ROMs, runs the transplant engine
// and writes the patched destination ROM to a new file.
package onify

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/Terr/phoenix-wright-2-onifier/internal/nds"
	"github.com/Terr/phoenix-wright-2-onifier/internal/sdat"
	"github.com/Terr/phoenix-wright-2-onifier/internal/transplant"
)

// DefaultSoundDataPath is where both games keep their sound archive.
const DefaultSoundDataPath = "sound_data.sdat"

var (
	// ErrOutputExists is returned when the output path is already taken.
	ErrOutputExists = errors.New("output file already exists")
	// ErrOpenContainer is returned when a ROM or its sound archive cannot be
	// read or parsed.
	ErrOpenContainer = errors.New("cannot open container")
	// ErrNotFound is returned when the plan names something that is missing.
	ErrNotFound = transplant.ErrNotFound
)

// Options configures a run.
type Options struct {
	SourcePath string // first game
	DestPath   string // second game
	OutputPath string
	// SoundDataPath is the sound archive's path inside both ROMs.
	// Empty means DefaultSoundDataPath.
	SoundDataPath string
	Plan          transplant.Plan
}

// Result describes a completed run.
type Result struct {
	RunID         string             `json:"run_id"`
	OutputPath    string             `json:"output_path"`
	BytesWritten  int                `json:"bytes_written"`
	SoundDataSize int                `json:"sound_data_size"`
	Report        *transplant.Report `json:"report"`
}

type container struct {
	rom     *nds.ROM
	archive *sdat.Archive
}

// Run performs the whole conversion. The output file is only created once
// everything else has succeeded; on error nothing is written.
func Run(opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.SoundDataPath == "" {
		opts.SoundDataPath = DefaultSoundDataPath
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	if err := checkOutput(opts.OutputPath); err != nil {
		return nil, err
	}

	src, err := open(opts.SourcePath, opts.SoundDataPath, logger)
	if err != nil {
		return nil, err
	}
	dst, err := open(opts.DestPath, opts.SoundDataPath, logger)
	if err != nil {
		return nil, err
	}

	report, err := transplant.New(logger).Run(src.archive, dst.archive, opts.Plan)
	if err != nil {
		return nil, err
	}

	soundData, err := dst.archive.Save()
	if err != nil {
		return nil, fmt.Errorf("saving sound archive: %w", err)
	}
	if err := dst.rom.ReplaceFile(opts.SoundDataPath, soundData); err != nil {
		return nil, fmt.Errorf("replacing %s: %w", opts.SoundDataPath, err)
	}

	out := dst.rom.Bytes()
	if err := writeOutput(opts.OutputPath, out); err != nil {
		return nil, err
	}
	logger.Info("output written", "path", opts.OutputPath, "bytes", len(out))

	return &Result{
		RunID:         runID,
		OutputPath:    opts.OutputPath,
		BytesWritten:  len(out),
		SoundDataSize: len(soundData),
		Report:        report,
	}, nil
}

func checkOutput(path string) error {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrOutputExists, path)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("checking output %s: %w", path, err)
	}
}

// Open reads a ROM and parses its sound archive.
func Open(path, soundDataPath string) (*nds.ROM, *sdat.Archive, error) {
	c, err := open(path, soundDataPath, nil)
	if err != nil {
		return nil, nil, err
	}
	return c.rom, c.archive, nil
}

func open(path, soundDataPath string, logger *slog.Logger) (*container, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if soundDataPath == "" {
		soundDataPath = DefaultSoundDataPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenContainer, err)
	}
	rom, err := nds.Load(data)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpenContainer, path, err)
	}
	raw, err := rom.ReadFile(soundDataPath)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpenContainer, path, err)
	}
	archive, err := sdat.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %s: %w", ErrOpenContainer, path, soundDataPath, err)
	}

	logger.Debug("container opened",
		"path", path,
		"title", rom.Title(),
		"game_code", rom.GameCode(),
		"sequences", archive.Sequences.Len(),
		"banks", archive.Banks.Len(),
		"wave_archives", archive.WaveArchives.Len())
	return &container{rom: rom, archive: archive}, nil
}

// writeOutput creates path exclusively so a file that appeared since the
// pre-flight check is never overwritten. A failed write removes the file.
func writeOutput(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
		return fmt.Errorf("creating output: %w", err)
	}

	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
