package synth

import "time"

// NoteID identifies a voice; MIDI keys 0-127.
type NoteID uint8

// Output is the per-voice handle on the audio sink. SetGain and Close are
// called with the registry lock held and must not block.
type Output interface {
	SetGain(gain float32)
	Close() error
}

// Sink opens one Output per voice; the sink mixes them.
type Sink interface {
	Open(src Source) (Output, error)
}

// Voice is one sounding note. It is owned by the Registry.
type Voice struct {
	id        NoteID
	out       Output
	env       Envelope
	triggered time.Time
	releasing bool
	released  time.Time
	gain      float32
}

func (v *Voice) sinceRelease(now time.Time) time.Duration {
	if !v.releasing {
		return 0
	}
	return now.Sub(v.released)
}

// VoiceInfo is a read-only snapshot of a Voice.
type VoiceInfo struct {
	ID        NoteID
	Gain      float32
	Releasing bool
	Triggered time.Time
	Released  time.Time
	Envelope  Envelope
}

func (v *Voice) info() VoiceInfo {
	return VoiceInfo{
		ID:        v.id,
		Gain:      v.gain,
		Releasing: v.releasing,
		Triggered: v.triggered,
		Released:  v.released,
		Envelope:  v.env,
	}
}
