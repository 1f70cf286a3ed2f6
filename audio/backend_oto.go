//go:build !headless

package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"go-synth/synth"
)

// Device opens one oto player per voice; oto mixes the players.
type Device struct {
	ctx    *oto.Context
	volume float64
	logger *log.Logger

	mu      sync.Mutex
	players int
}

// Open creates the oto context. Only one may exist per process.
func Open(volume float64) (*Device, error) {
	op := &oto.NewContextOptions{
		SampleRate:   synth.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   20 * time.Millisecond,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	<-ready

	d := &Device{
		ctx:    ctx,
		volume: clampVolume(volume),
		logger: log.Default().WithPrefix("audio"),
	}
	d.logger.Info("audio output ready", "rate", synth.SampleRate, "volume", d.volume)
	return d, nil
}

// Open implements synth.Sink.
func (d *Device) Open(src synth.Source) (synth.Output, error) {
	if err := d.ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	s := newStream(src)
	p := d.ctx.NewPlayer(s)
	p.SetVolume(0)
	p.Play()

	d.mu.Lock()
	d.players++
	d.mu.Unlock()
	return &voiceOutput{dev: d, stream: s, player: p}, nil
}

// Active returns how many voice players are open.
func (d *Device) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.players
}

// Close suspends the audio context.
func (d *Device) Close() error {
	return d.ctx.Suspend()
}

type voiceOutput struct {
	dev    *Device
	stream *stream
	player *oto.Player
	once   sync.Once
}

func (o *voiceOutput) SetGain(g float32) {
	o.player.SetVolume(float64(g) * o.dev.volume)
}

func (o *voiceOutput) Close() error {
	o.once.Do(func() {
		o.stream.close()
		o.player.Pause()
		o.dev.mu.Lock()
		o.dev.players--
		o.dev.mu.Unlock()
	})
	return nil
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
