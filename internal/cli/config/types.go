// Package config provides configuration management for the onifier CLI.
//
// Values are layered, lowest to highest: built-in defaults, a YAML file,
// ONIFIER_* environment variables and flags set on the command line.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Terr/phoenix-wright-2-onifier/internal/onify"
	"github.com/Terr/phoenix-wright-2-onifier/internal/transplant"
)

// Config holds all CLI configuration options.
type Config struct {
	SdatPath   string            `koanf:"sdat_path" yaml:"sdat_path"`
	Verbose    bool              `koanf:"verbose" yaml:"verbose"`
	LogFormat  string            `koanf:"log_format" yaml:"log_format"`
	Output     string            `koanf:"output" yaml:"output"`
	Tracks     []TrackMapping    `koanf:"tracks" yaml:"tracks"`
	WaveRemap  []WaveMapping     `koanf:"wave_remap" yaml:"wave_remap,omitempty"`
	BulkImport *BulkImportConfig `koanf:"bulk_import" yaml:"bulk_import,omitempty"`
}

// TrackMapping sends the first game's track From to the second game's
// track To. On the command line and in the environment it is written as
// "FROM=TO".
type TrackMapping struct {
	From string `koanf:"from" yaml:"from"`
	To   string `koanf:"to" yaml:"to"`
}

// UnmarshalText parses "FROM=TO".
func (m *TrackMapping) UnmarshalText(text []byte) error {
	from, to, ok := strings.Cut(string(text), "=")
	if !ok {
		return fmt.Errorf("track mapping %q is not FROM=TO", text)
	}
	m.From, m.To = strings.TrimSpace(from), strings.TrimSpace(to)
	return nil
}

func (m TrackMapping) String() string {
	return m.From + "=" + m.To
}

// WaveMapping rewrites sample index From to To in transplanted banks.
type WaveMapping struct {
	From int `koanf:"from" yaml:"from"`
	To   int `koanf:"to" yaml:"to"`
}

// UnmarshalText parses "FROM=TO" with decimal indices.
func (m *WaveMapping) UnmarshalText(text []byte) error {
	from, to, ok := strings.Cut(string(text), "=")
	if !ok {
		return fmt.Errorf("wave mapping %q is not FROM=TO", text)
	}
	var err error
	if m.From, err = strconv.Atoi(strings.TrimSpace(from)); err != nil {
		return fmt.Errorf("wave mapping %q: %w", text, err)
	}
	if m.To, err = strconv.Atoi(strings.TrimSpace(to)); err != nil {
		return fmt.Errorf("wave mapping %q: %w", text, err)
	}
	return nil
}

// BulkImportConfig lists samples to append to a shared wave archive before
// any bank is relinked.
type BulkImportConfig struct {
	SourceArchive string `koanf:"source_archive" yaml:"source_archive"`
	DestArchive   string `koanf:"dest_archive" yaml:"dest_archive"`
	Positions     []int  `koanf:"positions" yaml:"positions"`
}

// Default configuration values.
const (
	DefaultSdatPath  = onify.DefaultSoundDataPath
	DefaultLogFormat = "text"
	DefaultOutput    = "auto" // TTY gets styled text, anything else plain text
)

// DefaultTracks is the mapping used when none is configured. The comment on
// each entry is the track as heard in the first game.
func DefaultTracks() []TrackMapping {
	return []TrackMapping{
		{From: "BGM005", To: "BGM071"}, // Logic & Trick
		{From: "BGM008", To: "BGM077"}, // Defendant Lobby
		{From: "BGM013", To: "BGM069"}, // Court
		{From: "BGM010", To: "BGM072"}, // Cross-Examination Moderato
		{From: "BGM011", To: "BGM073"}, // Cross-Examination Allegro
		{From: "BGM004", To: "BGM070"}, // Objection
		{From: "BGM002", To: "BGM074"}, // Pursuit
		{From: "BGM003", To: "BGM075"}, // Pursuit variation
		{From: "BGM016", To: "BGM080"}, // Save prompt
	}
}

// Plan converts the configuration into a transplant plan.
func (c *Config) Plan() transplant.Plan {
	plan := transplant.Plan{Tracks: make([]transplant.TrackPair, len(c.Tracks))}
	for i, t := range c.Tracks {
		plan.Tracks[i] = transplant.TrackPair{From: t.From, To: t.To}
	}
	if len(c.WaveRemap) > 0 {
		plan.WaveRemap = make(map[int]int, len(c.WaveRemap))
		for _, m := range c.WaveRemap {
			plan.WaveRemap[m.From] = m.To
		}
	}
	if c.BulkImport != nil {
		plan.Import = &transplant.BulkImport{
			SourceArchive: c.BulkImport.SourceArchive,
			DestArchive:   c.BulkImport.DestArchive,
			Positions:     append([]int(nil), c.BulkImport.Positions...),
		}
	}
	return plan
}
