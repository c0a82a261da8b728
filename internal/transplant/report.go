package transplant

// Placement is where a copied entry ended up in the destination list.
type Placement struct {
	Position int `json:"position"`
	// Replaced is false when the entry was appended.
	Replaced bool `json:"replaced"`
}

// TrackResult describes one transplanted track.
type TrackResult struct {
	Pair          TrackPair `json:"pair"`
	WaveArchive   Placement `json:"wave_archive"`
	Bank          Placement `json:"bank"`
	Sequence      Placement `json:"sequence"`
	RemappedNotes int       `json:"remapped_notes"`
}

// Report summarizes a run.
type Report struct {
	Tracks          []TrackResult `json:"tracks"`
	ImportedSamples int           `json:"imported_samples"`
}

// Appended returns the number of sequences that were added rather than
// replaced.
func (r *Report) Appended() int {
	n := 0
	for _, t := range r.Tracks {
		if !t.Sequence.Replaced {
			n++
		}
	}
	return n
}

// RemappedNotes returns the total number of notes rewritten by the remap.
func (r *Report) RemappedNotes() int {
	n := 0
	for _, t := range r.Tracks {
		n += t.RemappedNotes
	}
	return n
}
