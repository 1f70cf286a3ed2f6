package midi

import "errors"

// ErrInputUnavailable is returned when no MIDI input port can be opened.
// Live input is disabled; synthesis and file playback keep working.
var ErrInputUnavailable = errors.New("midi input unavailable")

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerKeyboard ControllerType = iota
)

func (t ControllerType) String() string {
	switch t {
	case ControllerKeyboard:
		return "keyboard"
	}
	return "unknown"
}

// Controller is the interface for MIDI input devices
type Controller interface {
	ID() string
	Type() ControllerType

	// Note events in arrival order. Closed by Close.
	NoteEvents() <-chan NoteEvent

	// Lifecycle
	Close() error
}
