package sequencer

import "time"

// Status is a snapshot of the manager for display.
type Status struct {
	Playing  bool
	File     string
	Progress float64 // 0..100
	Tempo    uint32  // microseconds per quarter note
	Timing   string
	Length   time.Duration
	Tracks   int
	Notes    int
	Input    string
	Err      error
}

// BPM converts the tempo for display.
func (s Status) BPM() float64 {
	if s.Tempo == 0 {
		return 0
	}
	return 60e6 / float64(s.Tempo)
}
