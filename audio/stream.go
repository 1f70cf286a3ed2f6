// Package audio is the output boundary: every voice gets its own mono
// float32 stream, and the backend mixes them.
package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"go-synth/synth"
)

// ErrDeviceUnavailable means no audio output could be opened. Nothing can
// be synthesized without it.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

const bytesPerSample = 4 // float32 LE, mono

// stream adapts a synth.Source to the io.Reader a player pulls from.
type stream struct {
	mu     sync.Mutex
	src    synth.Source
	closed atomic.Bool
}

func newStream(src synth.Source) *stream {
	return &stream{src: src}
}

// Read fills p with whole samples. It returns io.EOF once closed so the
// player drains and stops.
func (s *stream) Read(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, io.EOF
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(p) / bytesPerSample
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(p[i*bytesPerSample:], math.Float32bits(s.src.Next()))
	}
	return n * bytesPerSample, nil
}

func (s *stream) close() {
	s.closed.Store(true)
}
