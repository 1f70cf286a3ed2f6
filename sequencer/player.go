package sequencer

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"go-synth/midi"
)

// DefaultTolerance is how early an event may be dispatched instead of
// sleeping for the remainder.
const DefaultTolerance = time.Millisecond

// Player plays a Song by merging its tracks in time order and handing
// note events to a dispatch function at their scheduled time.
type Player struct {
	tolerance time.Duration
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
	logger    *log.Logger
}

type PlayerOption func(*Player)

// WithTolerance sets the early-dispatch window.
func WithTolerance(d time.Duration) PlayerOption {
	return func(p *Player) {
		if d >= 0 {
			p.tolerance = d
		}
	}
}

// WithPlayerClock replaces the wall clock and the sleep primitive.
func WithPlayerClock(now func() time.Time, sleep func(context.Context, time.Duration) error) PlayerOption {
	return func(p *Player) {
		p.now = now
		p.sleep = sleep
	}
}

func WithPlayerLogger(l *log.Logger) PlayerOption {
	return func(p *Player) { p.logger = l }
}

func NewPlayer(opts ...PlayerOption) *Player {
	p := &Player{
		tolerance: DefaultTolerance,
		now:       time.Now,
		sleep:     sleepCtx,
		logger:    log.Default().WithPrefix("player"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// cursor walks one track. ticks is the absolute tick of the pending event.
type cursor struct {
	track     int
	events    Track
	pos       int
	ticks     uint64
	usPerTick float64
	done      bool
}

func newCursor(idx int, events Track, usPerTick float64) *cursor {
	c := &cursor{track: idx, events: events, usPerTick: usPerTick}
	if len(events) == 0 {
		c.done = true
		return c
	}
	c.ticks = uint64(events[0].Delta)
	return c
}

func (c *cursor) at() time.Duration {
	return micros(float64(c.ticks) * c.usPerTick)
}

func (c *cursor) current() Event {
	return c.events[c.pos]
}

func (c *cursor) advance() {
	if c.current().IsEndOfTrack() {
		c.done = true
		return
	}
	c.pos++
	if c.pos >= len(c.events) {
		c.done = true
		return
	}
	c.ticks += uint64(c.events[c.pos].Delta)
}

// Play blocks until the song ends or ctx is cancelled. Note events are
// passed to dispatch in global time order; events due at the same time
// are dispatched in track order. progress, if set, receives a
// non-decreasing percentage and always ends at 100 on completion.
func (p *Player) Play(ctx context.Context, song *Song, dispatch func(midi.NoteEvent), progress func(float64)) error {
	a, err := Analyze(song)
	if err != nil {
		return err
	}
	if !a.TempoFound {
		p.logger.Info("no tempo event, using default", "tempo", DefaultTempo)
	}
	if progress == nil {
		progress = func(float64) {}
	}

	cursors := make([]*cursor, 0, len(song.Tracks))
	for i, track := range song.Tracks {
		if !a.Plays(i) {
			continue
		}
		cursors = append(cursors, newCursor(i, track, a.MicrosPerTick[i]))
	}

	p.logger.Debug("playback start", "tracks", len(cursors), "tempo", a.Tempo, "timing", song.Timing, "length", a.Length)

	start := p.now()
	var now time.Duration
	var last float64
	report := func(pct float64) {
		if pct > 100 {
			pct = 100
		}
		if pct < last {
			pct = last
		}
		last = pct
		progress(pct)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		for _, c := range cursors {
			for !c.done && c.at() <= now {
				if ev, ok := c.current().Note(); ok {
					dispatch(ev)
				}
				c.advance()
			}
		}

		next, ok := earliest(cursors)
		if !ok {
			report(100)
			p.logger.Debug("playback done", "elapsed", p.now().Sub(start))
			return nil
		}

		if a.Length > 0 {
			report(float64(now) / float64(a.Length) * 100)
		} else {
			report(0)
		}

		now = next
		if err := p.wait(ctx, start.Add(now)); err != nil {
			return err
		}
	}
}

func earliest(cursors []*cursor) (time.Duration, bool) {
	var next time.Duration
	found := false
	for _, c := range cursors {
		if c.done {
			continue
		}
		if at := c.at(); !found || at < next {
			next = at
			found = true
		}
	}
	return next, found
}

func (p *Player) wait(ctx context.Context, deadline time.Time) error {
	d := deadline.Sub(p.now())
	if d <= p.tolerance {
		return ctx.Err()
	}
	return p.sleep(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
