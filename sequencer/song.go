package sequencer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"

	"go-synth/midi"
)

// ErrMalformedFile covers unreadable MIDI files and files whose structure
// cannot be played (no usable timing).
var ErrMalformedFile = errors.New("malformed midi file")

// DefaultTempo is 120 BPM in microseconds per quarter note.
const DefaultTempo uint32 = 500000

// Timing converts ticks to real time.
type Timing interface {
	// MicrosPerTick returns microseconds per tick for a tempo in
	// microseconds per quarter note.
	MicrosPerTick(tempo uint32) float64
	String() string
}

// Metrical timing counts ticks per quarter note; real time depends on tempo.
type Metrical struct {
	TicksPerQuarter uint16
}

func (m Metrical) MicrosPerTick(tempo uint32) float64 {
	return float64(tempo) / float64(m.TicksPerQuarter)
}

func (m Metrical) String() string {
	return fmt.Sprintf("%d ticks/quarter", m.TicksPerQuarter)
}

// Timecode timing counts ticks per SMPTE frame; tempo does not apply.
type Timecode struct {
	FramesPerSecond uint8 // 24, 25, 29 (29.97 drop-frame) or 30
	TicksPerFrame   uint8
}

func (t Timecode) fps() float64 {
	if t.FramesPerSecond == 29 {
		return 29.97
	}
	return float64(t.FramesPerSecond)
}

func (t Timecode) MicrosPerTick(uint32) float64 {
	sub := float64(t.TicksPerFrame)
	if sub == 0 {
		sub = 1
	}
	return 1e6 / (t.fps() * sub)
}

func (t Timecode) String() string {
	return fmt.Sprintf("%d fps x %d ticks/frame", t.FramesPerSecond, t.TicksPerFrame)
}

// Event is one track entry: ticks since the previous event in the same
// track, and the message.
type Event struct {
	Delta   uint32
	Message smf.Message
}

// Track is an ordered list of events.
type Track []Event

// Song is a parsed multi-track MIDI file.
type Song struct {
	Timing Timing
	Tracks []Track
}

// Note returns the note event carried by e, if any.
func (e Event) Note() (midi.NoteEvent, bool) {
	return midi.Parse(e.Message)
}

// Tempo returns the tempo in microseconds per quarter note for a tempo
// meta event.
func (e Event) Tempo() (uint32, bool) {
	var bpm float64
	if !e.Message.GetMetaTempo(&bpm) || bpm <= 0 {
		return 0, false
	}
	return uint32(math.Round(60e6 / bpm)), true
}

// IsEndOfTrack reports the end-of-track meta event.
func (e Event) IsEndOfTrack() bool {
	return e.Message.Is(smf.MetaEndOfTrackMsg)
}

// LoadFile reads a Standard MIDI File from disk.
func LoadFile(path string) (*Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load parses a Standard MIDI File.
func Load(r io.Reader) (*Song, error) {
	sm, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}

	song := &Song{}
	switch tf := sm.TimeFormat.(type) {
	case smf.MetricTicks:
		song.Timing = Metrical{TicksPerQuarter: uint16(tf)}
	case smf.TimeCode:
		song.Timing = Timecode{FramesPerSecond: tf.FramesPerSecond, TicksPerFrame: tf.SubFrames}
	default:
		return nil, fmt.Errorf("%w: missing timing descriptor", ErrMalformedFile)
	}

	for _, tr := range sm.Tracks {
		track := make(Track, 0, len(tr))
		for _, ev := range tr {
			track = append(track, Event{
				Delta:   ev.Delta,
				Message: append(smf.Message(nil), ev.Message...),
			})
		}
		song.Tracks = append(song.Tracks, track)
	}
	return song, nil
}
