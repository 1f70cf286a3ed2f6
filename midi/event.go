package midi

import gomidi "gitlab.com/gomidi/midi/v2"

// MIDI status nibbles
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
)

// NoteEvent is a raw 3-byte channel message: [status, key, velocity].
// Both live input and file playback deliver notes in this form.
type NoteEvent struct {
	Status   uint8
	Key      uint8
	Velocity uint8
}

// Parse classifies a raw message. Only note-on and note-off are accepted;
// the channel is kept in Status but ignored by IsOn/IsOff.
func Parse(msg []byte) (NoteEvent, bool) {
	if len(msg) < 3 {
		return NoteEvent{}, false
	}
	var ch, key, vel uint8
	m := gomidi.Message(msg)
	switch {
	case m.GetNoteOn(&ch, &key, &vel):
		return NoteEvent{Status: NoteOn | ch, Key: key, Velocity: vel}, true
	case m.GetNoteOff(&ch, &key, &vel):
		return NoteEvent{Status: NoteOff | ch, Key: key, Velocity: vel}, true
	}
	return NoteEvent{}, false
}

// NewNoteOn builds a channel-0 note-on.
func NewNoteOn(key, velocity uint8) NoteEvent {
	return NoteEvent{Status: NoteOn, Key: key & 0x7F, Velocity: velocity & 0x7F}
}

// NewNoteOff builds a channel-0 note-off.
func NewNoteOff(key uint8) NoteEvent {
	return NoteEvent{Status: NoteOff, Key: key & 0x7F}
}

// IsOn reports a note-on with non-zero velocity.
func (e NoteEvent) IsOn() bool {
	return e.Status&0xF0 == NoteOn && e.Velocity > 0
}

// IsOff reports a note-off, including note-on with velocity 0.
func (e NoteEvent) IsOff() bool {
	switch e.Status & 0xF0 {
	case NoteOff:
		return true
	case NoteOn:
		return e.Velocity == 0
	}
	return false
}

// Channel returns the 0-based channel.
func (e NoteEvent) Channel() uint8 {
	return e.Status & 0x0F
}

func (e NoteEvent) Bytes() []byte {
	return []byte{e.Status, e.Key, e.Velocity}
}
