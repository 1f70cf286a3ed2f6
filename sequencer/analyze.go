package sequencer

import (
	"fmt"
	"math"
	"time"
)

// Analysis holds what playback needs to know before it starts.
type Analysis struct {
	Tempo      uint32 // microseconds per quarter note
	TempoFound bool
	// TempoTrack is the track carrying the tempo event, or -1.
	TempoTrack int
	// Skipped is the track left out of playback, or -1. The tempo track
	// is skipped only when it has no notes.
	Skipped int

	LengthTicks   uint64
	MicrosPerTick []float64 // per track
	Length        time.Duration
	Notes         int
}

// Plays reports whether track i is part of playback.
func (a Analysis) Plays(i int) bool {
	return i != a.Skipped
}

// Analyze finds the tempo, per-track tick duration and song length.
func Analyze(song *Song) (Analysis, error) {
	a := Analysis{Tempo: DefaultTempo, TempoTrack: -1, Skipped: -1}
	if song == nil || song.Timing == nil {
		return a, fmt.Errorf("%w: missing timing descriptor", ErrMalformedFile)
	}
	if m, ok := song.Timing.(Metrical); ok && m.TicksPerQuarter == 0 {
		return a, fmt.Errorf("%w: zero ticks per quarter note", ErrMalformedFile)
	}
	if tc, ok := song.Timing.(Timecode); ok && tc.FramesPerSecond == 0 {
		return a, fmt.Errorf("%w: zero frames per second", ErrMalformedFile)
	}

	tempoTrackNotes := 0
	for i, track := range song.Tracks {
		var ticks uint64
		var notes int
		for _, ev := range track {
			ticks += uint64(ev.Delta)
			if _, ok := ev.Note(); ok {
				notes++
			}
			if tempo, ok := ev.Tempo(); ok && !a.TempoFound && tempo > 0 {
				a.Tempo = tempo
				a.TempoFound = true
				a.TempoTrack = i
			}
			if ev.IsEndOfTrack() {
				break
			}
		}
		if ticks > a.LengthTicks {
			a.LengthTicks = ticks
		}
		if i == a.TempoTrack {
			tempoTrackNotes = notes
		}
		a.Notes += notes
	}

	if a.TempoFound && tempoTrackNotes == 0 {
		a.Skipped = a.TempoTrack
	}

	a.MicrosPerTick = make([]float64, len(song.Tracks))
	var lengthMicros float64
	for i := range song.Tracks {
		a.MicrosPerTick[i] = song.Timing.MicrosPerTick(a.Tempo)
		if !a.Plays(i) {
			continue
		}
		if l := float64(a.LengthTicks) * a.MicrosPerTick[i]; l > lengthMicros {
			lengthMicros = l
		}
	}
	a.Length = micros(lengthMicros)
	return a, nil
}

func micros(us float64) time.Duration {
	return time.Duration(math.Round(us * float64(time.Microsecond)))
}
