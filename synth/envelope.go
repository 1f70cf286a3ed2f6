package synth

import (
	"math"
	"time"
)

// SettleMargin is how long a voice lingers after its release ramp ends
// before it is reaped, so the last samples are not cut off.
const SettleMargin = 100 * time.Millisecond

// Envelope holds ADSR parameters. A zero duration makes its phase
// instantaneous.
type Envelope struct {
	Attack  time.Duration
	Decay   time.Duration
	Sustain float32 // gain fraction in [0, 1]
	Release time.Duration
}

// DefaultEnvelope is a plucked shape: instant attack, two second decay to
// silence.
var DefaultEnvelope = Envelope{Decay: 2 * time.Second}

// Normalize clamps negative durations to zero and sustain into [0, 1].
func (e Envelope) Normalize() Envelope {
	if e.Attack < 0 {
		e.Attack = 0
	}
	if e.Decay < 0 {
		e.Decay = 0
	}
	if e.Release < 0 {
		e.Release = 0
	}
	e.Sustain = clamp01(e.Sustain)
	return e
}

// Seconds builds an Envelope from durations in seconds.
func Seconds(attack, decay float64, sustain float32, release float64) Envelope {
	return Envelope{
		Attack:  secs(attack),
		Decay:   secs(decay),
		Sustain: sustain,
		Release: secs(release),
	}.Normalize()
}

func secs(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// held evaluates the attack, decay and sustain phases.
func (e Envelope) held(elapsed time.Duration) float32 {
	if elapsed < e.Attack {
		// Attack > 0 here
		return float32(elapsed) / float32(e.Attack)
	}
	if elapsed < e.Attack+e.Decay {
		frac := float32(elapsed-e.Attack) / float32(e.Decay)
		return 1 - frac*(1-e.Sustain)
	}
	return e.Sustain
}

// Gain returns the amplitude for a voice triggered elapsed ago. When
// releasing, sinceRelease is the time since release was requested; the
// release ramp starts from whatever level the held phases had reached at
// that instant, so releasing mid-attack or mid-decay does not jump.
func (e Envelope) Gain(elapsed, sinceRelease time.Duration, releasing bool) float32 {
	if elapsed < 0 {
		elapsed = 0
	}
	if !releasing {
		return clamp01(e.held(elapsed))
	}

	if sinceRelease < 0 {
		sinceRelease = 0
	}
	if sinceRelease > elapsed {
		sinceRelease = elapsed
	}
	level := e.held(elapsed - sinceRelease)
	if e.Release <= 0 {
		return 0
	}
	r := min(sinceRelease, e.Release)
	return clamp01(level - float32(r)/float32(e.Release)*level)
}

// Done reports whether a released voice has finished its ramp plus the
// settling margin.
func (e Envelope) Done(sinceRelease time.Duration, releasing bool) bool {
	return releasing && sinceRelease >= e.Release+SettleMargin
}

func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
