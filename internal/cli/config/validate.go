package config

import (
	"fmt"
	"slices"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SdatPath == "" {
		return fmt.Errorf("sdat_path is required")
	}
	if !slices.Contains([]string{"text", "json"}, c.LogFormat) {
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if !slices.Contains([]string{"auto", "text", "json"}, c.Output) {
		return fmt.Errorf("output must be auto, text or json, got %q", c.Output)
	}

	seen := make(map[int]bool, len(c.WaveRemap))
	for _, m := range c.WaveRemap {
		if seen[m.From] {
			return fmt.Errorf("wave_remap lists sample %d twice", m.From)
		}
		seen[m.From] = true
	}

	return c.Plan().Validate()
}
