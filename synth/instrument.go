package synth

import (
	"sync"

	"go-synth/midi"
)

// Patch is the sound new notes get.
type Patch struct {
	Waveform Waveform
	Envelope Envelope
}

// DefaultPatch is a sawtooth pluck.
var DefaultPatch = Patch{Waveform: Sawtooth, Envelope: DefaultEnvelope}

// Instrument turns note events into registry operations.
type Instrument struct {
	reg *Registry

	mu    sync.RWMutex
	patch Patch
}

func NewInstrument(reg *Registry, patch Patch) *Instrument {
	patch.Envelope = patch.Envelope.Normalize()
	return &Instrument{reg: reg, patch: patch}
}

func (in *Instrument) Registry() *Registry {
	return in.reg
}

func (in *Instrument) Patch() Patch {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.patch
}

// SetPatch affects notes started afterwards.
func (in *Instrument) SetPatch(p Patch) {
	p.Envelope = p.Envelope.Normalize()
	in.mu.Lock()
	in.patch = p
	in.mu.Unlock()
}

// HandleNote triggers on note-on and releases on note-off. Other events
// are ignored.
func (in *Instrument) HandleNote(ev midi.NoteEvent) error {
	switch {
	case ev.IsOn():
		p := in.Patch()
		src := Amplify(NewGenerator(p.Waveform, Frequency(ev.Key)), float32(ev.Velocity)/127)
		return in.reg.Trigger(NoteID(ev.Key), src, p.Envelope)
	case ev.IsOff():
		in.reg.Release(NoteID(ev.Key))
	}
	return nil
}

// ReleaseAll releases every held note.
func (in *Instrument) ReleaseAll() {
	in.reg.ReleaseAll()
}
