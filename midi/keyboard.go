package midi

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// noteBuffer bounds the queue between the driver callback and the consumer.
const noteBuffer = 256

// KeyboardController handles a standard MIDI keyboard
type KeyboardController struct {
	id       string
	inPort   drivers.In
	stopFunc func()
	logger   *log.Logger

	mu       sync.Mutex
	closed   bool
	noteChan chan NoteEvent
	dropped  atomic.Uint64
}

// NewKeyboardController creates a keyboard controller (input only)
func NewKeyboardController(id string, inPort drivers.In) (*KeyboardController, error) {
	kb := &KeyboardController{
		id:       id,
		inPort:   inPort,
		logger:   log.Default().WithPrefix("midi"),
		noteChan: make(chan NoteEvent, noteBuffer),
	}

	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
			if ev, ok := Parse(msg); ok {
				kb.push(ev)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("open input %s: %w", id, err)
		}
		kb.stopFunc = stop
	}

	return kb, nil
}

// push never blocks the driver callback; a full queue drops the event.
func (kb *KeyboardController) push(ev NoteEvent) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if kb.closed {
		return
	}
	select {
	case kb.noteChan <- ev:
	default:
		n := kb.dropped.Add(1)
		kb.logger.Warn("note queue full, dropping event", "port", kb.id, "key", ev.Key, "dropped", n)
	}
}

func (kb *KeyboardController) ID() string {
	return kb.id
}

func (kb *KeyboardController) Type() ControllerType {
	return ControllerKeyboard
}

func (kb *KeyboardController) NoteEvents() <-chan NoteEvent {
	return kb.noteChan
}

// Dropped returns how many events were lost to a full queue.
func (kb *KeyboardController) Dropped() uint64 {
	return kb.dropped.Load()
}

func (kb *KeyboardController) Close() error {
	if kb.stopFunc != nil {
		kb.stopFunc()
	}
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if !kb.closed {
		kb.closed = true
		close(kb.noteChan)
	}
	return nil
}
