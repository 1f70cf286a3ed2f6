package synth

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"go-synth/debug"
)

// DefaultTickInterval keeps a 10 ms ramp at two or more gain steps.
const DefaultTickInterval = 5 * time.Millisecond

// Registry owns the set of sounding voices, keyed by NoteID.
type Registry struct {
	mu     sync.Mutex
	voices map[NoteID]*Voice

	sink     Sink
	now      func() time.Time
	interval time.Duration
	logger   *log.Logger
}

type Option func(*Registry)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithTickInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

func NewRegistry(sink Sink, opts ...Option) *Registry {
	r := &Registry{
		voices:   make(map[NoteID]*Voice),
		sink:     sink,
		now:      time.Now,
		interval: DefaultTickInterval,
		logger:   log.Default().WithPrefix("synth"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Trigger starts a voice for id, replacing any voice already sounding
// there. The only failure is the sink refusing a new output.
func (r *Registry) Trigger(id NoteID, src Source, env Envelope) error {
	env = env.Normalize()

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.voices[id]; ok {
		old.out.Close()
		delete(r.voices, id)
	}

	out, err := r.sink.Open(src)
	if err != nil {
		return fmt.Errorf("open output for note %d: %w", id, err)
	}

	v := &Voice{
		id:        id,
		out:       out,
		env:       env,
		triggered: r.now(),
	}
	v.gain = env.Gain(0, 0, false)
	out.SetGain(v.gain)
	r.voices[id] = v
	return nil
}

// Release starts the release phase of id. Unknown ids and voices already
// releasing are left alone.
func (r *Registry) Release(id NoteID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.voices[id]
	if !ok {
		r.logger.Debug("release of unknown note", "id", id)
		return
	}
	if v.releasing {
		return
	}
	v.releasing = true
	v.released = r.now()
}

// ReleaseAll releases every held voice.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, v := range r.voices {
		if !v.releasing {
			v.releasing = true
			v.released = now
		}
	}
}

// Tick refreshes every voice's gain and reaps finished voices. Voices are
// removed only after the gain pass.
func (r *Registry) Tick() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var done []NoteID
	for id, v := range r.voices {
		since := v.sinceRelease(now)
		v.gain = v.env.Gain(now.Sub(v.triggered), since, v.releasing)
		v.out.SetGain(v.gain)
		if v.env.Done(since, v.releasing) {
			done = append(done, id)
		}
	}

	for _, id := range done {
		r.voices[id].out.Close()
		delete(r.voices, id)
	}
	if len(done) > 0 && debug.Every(50, "reap") {
		r.logger.Debug("reaped voices", "count", len(done), "live", len(r.voices))
	}
}

// Run ticks at the configured interval until ctx is done, then closes
// every remaining output.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			r.Tick()
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, v := range r.voices {
		v.out.Close()
		delete(r.voices, id)
	}
}

// Len returns the number of live voices.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.voices)
}

// Voices returns a snapshot ordered by id.
func (r *Registry) Voices() []VoiceInfo {
	r.mu.Lock()
	out := make([]VoiceInfo, 0, len(r.voices))
	for _, v := range r.voices {
		out = append(out, v.info())
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Voice returns the snapshot for id.
func (r *Registry) Voice(id NoteID) (VoiceInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.voices[id]
	if !ok {
		return VoiceInfo{}, false
	}
	return v.info(), true
}
