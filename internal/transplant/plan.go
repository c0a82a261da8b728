package transplant

import (
	"errors"
	"fmt"
)

// ErrInvalidPlan is returned when a plan contradicts itself.
var ErrInvalidPlan = errors.New("invalid transplant plan")

const (
	waveArchivePrefix = "WAVE_"
	bankPrefix        = "BANK_"
)

// WaveArchiveName returns the wave archive name that belongs to a track.
func WaveArchiveName(track string) string {
	return waveArchivePrefix + track
}

// BankName returns the bank name that belongs to a track.
func BankName(track string) string {
	return bankPrefix + track
}

// TrackPair maps a source track onto the destination track it replaces.
// The sequence itself is named after the track.
type TrackPair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (p TrackPair) String() string {
	return p.From + " -> " + p.To
}

// BulkImport copies samples by position from a shared source wave archive
// to the end of a shared destination wave archive.
type BulkImport struct {
	SourceArchive string
	DestArchive   string
	Positions     []int
}

// Plan is everything one run needs besides the two archives.
type Plan struct {
	// Tracks are transplanted in order.
	Tracks []TrackPair
	// WaveRemap maps sample indices used by transplanted banks to the
	// positions those samples occupy in the destination after the import.
	WaveRemap map[int]int
	// Import runs before any bank is relinked. Nil skips it.
	Import *BulkImport
}

// Validate checks the plan on its own, without looking at any archive.
func (p Plan) Validate() error {
	var errs []error
	from := make(map[string]bool, len(p.Tracks))
	to := make(map[string]bool, len(p.Tracks))
	for i, t := range p.Tracks {
		if t.From == "" || t.To == "" {
			errs = append(errs, fmt.Errorf("track %d has an empty name", i))
			continue
		}
		if from[t.From] {
			errs = append(errs, fmt.Errorf("source track %s is listed twice", t.From))
		}
		if to[t.To] {
			errs = append(errs, fmt.Errorf("destination track %s is listed twice", t.To))
		}
		from[t.From], to[t.To] = true, true
	}

	for src, dst := range p.WaveRemap {
		if src < 0 || dst < 0 || src > 0xFFFF || dst > 0xFFFF {
			errs = append(errs, fmt.Errorf("wave remap %d -> %d is outside 0-65535", src, dst))
		}
	}

	if p.Import != nil {
		if p.Import.SourceArchive == "" || p.Import.DestArchive == "" {
			errs = append(errs, errors.New("bulk import needs source and destination wave archive names"))
		}
		for _, pos := range p.Import.Positions {
			if pos < 0 {
				errs = append(errs, fmt.Errorf("bulk import position %d is negative", pos))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, errors.Join(errs...))
	}
	return nil
}
