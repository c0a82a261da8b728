// Package transplant copies tracks between two sound archives.
//
// A track is a sequence plus the bank and wave archive named after it
// ("BANK_<track>", "WAVE_<track>"). Moving a track means copying all three
// and relinking the references between them so they are valid in the
// destination's ID space.
package transplant

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Terr/phoenix-wright-2-onifier/internal/named"
	"github.com/Terr/phoenix-wright-2-onifier/internal/sdat"
)

// ErrNotFound is returned when a name the plan depends on is missing. It is
// the same sentinel named lists return.
var ErrNotFound = named.ErrNotFound

// Engine applies plans to archives.
type Engine struct {
	logger *slog.Logger
}

// New creates an engine. A nil logger discards output.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{logger: logger}
}

// Run checks the plan against both archives and then applies it to dst:
// the bulk sample import first, then every track pair in order.
//
// All lookups happen in Check before anything is written, so a missing name
// leaves dst untouched. src is never modified.
func (e *Engine) Run(src, dst *sdat.Archive, plan Plan) (*Report, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if err := Check(src, dst, plan); err != nil {
		return nil, err
	}

	report := &Report{}
	if plan.Import != nil {
		n, err := ImportSamples(src, dst, *plan.Import)
		if err != nil {
			return nil, err
		}
		report.ImportedSamples = n
		e.logger.Info("samples imported",
			"from", plan.Import.SourceArchive,
			"to", plan.Import.DestArchive,
			"count", n)
		e.warnUnmappedTargets(dst, plan)
	}

	for _, pair := range plan.Tracks {
		res, err := e.transplantTrack(src, dst, pair, plan.WaveRemap)
		if err != nil {
			return nil, fmt.Errorf("track %s: %w", pair, err)
		}
		report.Tracks = append(report.Tracks, res)
	}
	return report, nil
}

func (e *Engine) transplantTrack(src, dst *sdat.Archive, pair TrackPair, remap map[int]int) (TrackResult, error) {
	res := TrackResult{Pair: pair}

	var err error
	res.WaveArchive, err = TransplantWaveArchive(src, dst, pair)
	if err != nil {
		return res, err
	}
	e.logger.Debug("wave archive copied",
		"name", WaveArchiveName(pair.To),
		"position", res.WaveArchive.Position,
		"replaced", res.WaveArchive.Replaced)

	res.Bank, res.RemappedNotes, err = TransplantBank(src, dst, pair, remap)
	if err != nil {
		return res, err
	}
	e.logger.Debug("bank copied",
		"name", BankName(pair.To),
		"position", res.Bank.Position,
		"remapped_notes", res.RemappedNotes)

	res.Sequence, err = TransplantSequence(src, dst, pair)
	if err != nil {
		return res, err
	}

	e.logger.Info("track transplanted",
		"from", pair.From,
		"to", pair.To,
		"sequence", res.Sequence.Position,
		"appended", !res.Sequence.Replaced)
	return res, nil
}

// warnUnmappedTargets logs remap targets that point past the end of the
// shared destination archive. The table is trusted, so this only warns.
func (e *Engine) warnUnmappedTargets(dst *sdat.Archive, plan Plan) {
	wave, err := dst.WaveArchives.Find(plan.Import.DestArchive)
	if err != nil || wave == nil {
		return
	}
	for from, to := range plan.WaveRemap {
		if to >= len(wave.Samples) {
			e.logger.Warn("wave remap target is outside the shared archive",
				"from", from,
				"to", to,
				"samples", len(wave.Samples))
		}
	}
}

// Check verifies every lookup a plan needs, without modifying anything.
// All problems are reported together; each wraps ErrNotFound.
func Check(src, dst *sdat.Archive, plan Plan) error {
	var errs []error
	missing := func(where, name string) {
		errs = append(errs, fmt.Errorf("%s %w: %q", where, ErrNotFound, name))
	}

	for _, pair := range plan.Tracks {
		if !hasValue(&src.WaveArchives, WaveArchiveName(pair.From)) {
			missing("source wave archive", WaveArchiveName(pair.From))
		}
		if !hasValue(&src.Banks, BankName(pair.From)) {
			missing("source bank", BankName(pair.From))
		}
		if !hasValue(&src.Sequences, pair.From) {
			missing("source sequence", pair.From)
		}
		if !hasValue(&dst.Banks, BankName(pair.To)) {
			missing("destination bank", BankName(pair.To))
		}
	}

	if imp := plan.Import; imp != nil {
		from, err := src.WaveArchives.Find(imp.SourceArchive)
		switch {
		case err != nil || from == nil:
			missing("source wave archive", imp.SourceArchive)
		default:
			for _, pos := range imp.Positions {
				if pos < 0 || pos >= len(from.Samples) {
					errs = append(errs, fmt.Errorf("sample %d %w in %q (%d samples)",
						pos, ErrNotFound, imp.SourceArchive, len(from.Samples)))
				}
			}
		}
		if !hasValue(&dst.WaveArchives, imp.DestArchive) {
			missing("destination wave archive", imp.DestArchive)
		}
	}

	return errors.Join(errs...)
}

// ImportSamples appends the samples at imp.Positions, in listed order and
// including repeats, to the end of the destination archive. It returns the
// number of samples appended.
func ImportSamples(src, dst *sdat.Archive, imp BulkImport) (int, error) {
	from, err := findValue(&src.WaveArchives, imp.SourceArchive)
	if err != nil {
		return 0, fmt.Errorf("bulk import source: %w", err)
	}
	to, err := findValue(&dst.WaveArchives, imp.DestArchive)
	if err != nil {
		return 0, fmt.Errorf("bulk import destination: %w", err)
	}

	samples := make([][]byte, 0, len(imp.Positions))
	for _, pos := range imp.Positions {
		if pos < 0 || pos >= len(from.Samples) {
			return 0, fmt.Errorf("sample %d %w in %q (%d samples)", pos, ErrNotFound, imp.SourceArchive, len(from.Samples))
		}
		s := make([]byte, len(from.Samples[pos]))
		copy(s, from.Samples[pos])
		samples = append(samples, s)
	}
	to.Samples = append(to.Samples, samples...)
	return len(samples), nil
}

// TransplantWaveArchive copies WAVE_<from> over WAVE_<to>, appending it when
// the destination has no such archive.
func TransplantWaveArchive(src, dst *sdat.Archive, pair TrackPair) (Placement, error) {
	wave, err := findValue(&src.WaveArchives, WaveArchiveName(pair.From))
	if err != nil {
		return Placement{}, fmt.Errorf("source wave archive: %w", err)
	}
	pos, replaced := dst.WaveArchives.Set(WaveArchiveName(pair.To), wave.Clone())
	return Placement{Position: pos, Replaced: replaced}, nil
}

// TransplantBank replaces BANK_<to> with a copy of BANK_<from>. The copy
// keeps the wave archive IDs of the bank it replaces, and its sample
// indices are rewritten through remap. It returns the placement and the
// number of note definitions remap changed.
func TransplantBank(src, dst *sdat.Archive, pair TrackPair, remap map[int]int) (Placement, int, error) {
	from, err := findValue(&src.Banks, BankName(pair.From))
	if err != nil {
		return Placement{}, 0, fmt.Errorf("source bank: %w", err)
	}
	old, err := findValue(&dst.Banks, BankName(pair.To))
	if err != nil {
		return Placement{}, 0, fmt.Errorf("destination bank: %w", err)
	}

	bank := from.Clone()
	bank.WaveArchiveIDs = old.WaveArchiveIDs
	n := RemapNotes(bank, remap)

	pos, replaced := dst.Banks.Set(BankName(pair.To), bank)
	return Placement{Position: pos, Replaced: replaced}, n, nil
}

// TransplantSequence copies the <from> sequence over <to>, pointing it at
// BANK_<to>. The sequence is appended when <to> does not exist yet.
func TransplantSequence(src, dst *sdat.Archive, pair TrackPair) (Placement, error) {
	from, err := findValue(&src.Sequences, pair.From)
	if err != nil {
		return Placement{}, fmt.Errorf("source sequence: %w", err)
	}
	bankID, err := dst.Banks.Index(BankName(pair.To))
	if err != nil {
		return Placement{}, fmt.Errorf("destination bank: %w", err)
	}

	seq := from.Clone()
	seq.BankID = bankID
	pos, replaced := dst.Sequences.Set(pair.To, seq)
	return Placement{Position: pos, Replaced: replaced}, nil
}

// RemapNotes rewrites the sample index of every PCM or DirectPCM note in
// bank whose index is a key in table, and returns the number of notes
// changed. Keys of table never match PSG square or noise notes, even when
// their WaveID field holds the same number.
func RemapNotes(bank *sdat.Bank, table map[int]int) int {
	if len(table) == 0 {
		return 0
	}
	n := 0
	sdat.ForEachNote(bank.Instruments, func(note *sdat.NoteDefinition) {
		if !note.Type.ReferencesSample() {
			return
		}
		if to, ok := table[note.WaveID]; ok {
			note.WaveID = to
			n++
		}
	})
	return n
}

// findValue is List.Find that also treats a null entry as missing.
func findValue[T any](l *named.List[*T], name string) (*T, error) {
	v, err := l.Find(name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %q is a null entry", ErrNotFound, name)
	}
	return v, nil
}

func hasValue[T any](l *named.List[*T], name string) bool {
	_, err := findValue(l, name)
	return err == nil
}
