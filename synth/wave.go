package synth

import (
	"fmt"
	"math"
	"strings"
)

// SampleRate is the fixed output rate shared by every voice.
const SampleRate = 48000

// Waveform selects the oscillator shape.
type Waveform int

const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
)

var waveNames = [...]string{"sine", "square", "saw", "triangle"}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveNames) {
		return fmt.Sprintf("waveform(%d)", int(w))
	}
	return waveNames[w]
}

// Next cycles through the shapes (UI helper).
func (w Waveform) Next() Waveform {
	return (w + 1) % Waveform(len(waveNames))
}

// ParseWaveform accepts the names printed by String plus "sawtooth".
func ParseWaveform(s string) (Waveform, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "sawtooth" {
		return Sawtooth, nil
	}
	for i, n := range waveNames {
		if n == name {
			return Waveform(i), nil
		}
	}
	return Sine, fmt.Errorf("unknown waveform %q", s)
}

// Sample returns s(n) for frequency f in Hz, always within [-1, 1].
func Sample(w Waveform, f float64, n uint64) float32 {
	t := float64(n) / SampleRate
	switch w {
	case Square:
		if math.Sin(2*math.Pi*f*t) < 0 {
			return -1
		}
		return 1
	case Sawtooth:
		return float32(2*f*math.Mod(t, 1/f) - 1)
	case Triangle:
		return float32(math.Asin(math.Sin(2*math.Pi*f*t)) / (math.Pi / 2))
	default:
		return float32(math.Sin(2 * math.Pi * f * t))
	}
}

// Frequency converts a MIDI key to Hz (A4 = key 69 = 440 Hz).
func Frequency(key uint8) float64 {
	return 440.0 * math.Pow(2.0, (float64(key)-69.0)/12.0)
}

// Source is an endless stream of samples. Each Source is read by exactly
// one output, so implementations need not be safe for concurrent use.
type Source interface {
	Next() float32
}

// Generator is a Source producing one waveform at a fixed frequency. The
// sample counter only moves forward.
type Generator struct {
	wave Waveform
	freq float64
	n    uint64
}

func NewGenerator(w Waveform, freq float64) *Generator {
	return &Generator{wave: w, freq: freq}
}

func (g *Generator) Next() float32 {
	s := Sample(g.wave, g.freq, g.n)
	g.n++
	return s
}

func (g *Generator) Waveform() Waveform { return g.wave }
func (g *Generator) Frequency() float64 { return g.freq }

type amplified struct {
	src  Source
	gain float32
}

func (a amplified) Next() float32 {
	return a.src.Next() * a.gain
}

// Amplify scales src by a constant gain.
func Amplify(src Source, gain float32) Source {
	return amplified{src: src, gain: gain}
}
