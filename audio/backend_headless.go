//go:build headless

package audio

import (
	"sync"

	"go-synth/synth"
)

// Device accepts voices without producing sound.
type Device struct {
	volume float64

	mu      sync.Mutex
	players int
}

func Open(volume float64) (*Device, error) {
	return &Device{volume: volume}, nil
}

func (d *Device) Open(src synth.Source) (synth.Output, error) {
	d.mu.Lock()
	d.players++
	d.mu.Unlock()
	return &voiceOutput{dev: d, stream: newStream(src)}, nil
}

func (d *Device) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.players
}

func (d *Device) Close() error {
	return nil
}

type voiceOutput struct {
	dev    *Device
	stream *stream
	once   sync.Once
}

func (o *voiceOutput) SetGain(float32) {}

func (o *voiceOutput) Close() error {
	o.once.Do(func() {
		o.stream.close()
		o.dev.mu.Lock()
		o.dev.players--
		o.dev.mu.Unlock()
	})
	return nil
}
