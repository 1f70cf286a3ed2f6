package sequencer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-synth/midi"
	"go-synth/synth"
)

type nullOutput struct{}

func (nullOutput) SetGain(float32) {}
func (nullOutput) Close() error { return nil }

type nullSink struct {
	mu     sync.Mutex
	opened int
}

func (s *nullSink) Open(synth.Source) (synth.Output, error) {
	s.mu.Lock()
	s.opened++
	s.mu.Unlock()
	return nullOutput{}, nil
}

func newTestManager(player *Player) *Manager {
	reg := synth.NewRegistry(&nullSink{})
	return NewManager(synth.NewInstrument(reg, synth.DefaultPatch), player)
}

type fakeController struct {
	events chan midi.NoteEvent
}

func (c *fakeController) ID() string { return "Test Keys" }
func (c *fakeController) Type() midi.ControllerType { return midi.ControllerKeyboard }
func (c *fakeController) NoteEvents() <-chan midi.NoteEvent { return c.events }
func (c *fakeController) Close() error { close(c.events); return nil }

func noteSong(gapTicks uint32) *Song {
	return &Song{
		Timing: Metrical{TicksPerQuarter: 96},
		Tracks: []Track{{
			{Delta: 0, Message: []byte{0x90, 60, 100}},
			{Delta: gapTicks, Message: []byte{0x90, 64, 100}},
			{Delta: 0, Message: []byte{0xFF, 0x2F, 0x00}},
		}},
	}
}

func TestManagerPlaysToCompletion(t *testing.T) {
	clock := newVirtualClock()
	m := newTestManager(NewPlayer(WithPlayerClock(clock.now, clock.sleep)))

	require.NoError(t, m.PlaySong(noteSong(96), "song.mid"))
	m.Wait()

	st := m.Status()
	require.False(t, st.Playing)
	require.Equal(t, "song.mid", st.File)
	require.Equal(t, 100.0, st.Progress)
	require.Equal(t, DefaultTempo, st.Tempo)
	require.NoError(t, st.Err)

	// notes without note-off are released when the song ends
	reg := m.Instrument().Registry()
	for _, key := range []synth.NoteID{60, 64} {
		v, ok := reg.Voice(key)
		require.True(t, ok)
		require.True(t, v.Releasing)
	}
}

func TestManagerStop(t *testing.T) {
	m := newTestManager(nil)
	require.NoError(t, m.PlaySong(noteSong(96*1000), "long.mid"))

	reg := m.Instrument().Registry()
	require.Eventually(t, func() bool { return reg.Len() == 1 }, time.Second, time.Millisecond)

	m.Stop()
	require.False(t, m.Status().Playing)
	v, ok := reg.Voice(60)
	require.True(t, ok)
	require.True(t, v.Releasing)
	_, ok = reg.Voice(64)
	require.False(t, ok)
}

func TestManagerStopLeavesLiveNotes(t *testing.T) {
	m := newTestManager(nil)
	m.HandleNote(midi.NewNoteOn(48, 90))

	require.NoError(t, m.PlaySong(noteSong(96*1000), "long.mid"))
	reg := m.Instrument().Registry()
	require.Eventually(t, func() bool { return reg.Len() == 2 }, time.Second, time.Millisecond)
	m.Stop()

	live, ok := reg.Voice(48)
	require.True(t, ok)
	require.False(t, live.Releasing)
}

func TestManagerStopKeepsRetriggeredLiveNote(t *testing.T) {
	m := newTestManager(nil)
	require.NoError(t, m.PlaySong(noteSong(96*1000), "long.mid"))
	reg := m.Instrument().Registry()
	require.Eventually(t, func() bool { return reg.Len() == 1 }, time.Second, time.Millisecond)

	// the player holds 60; a live key press takes it over
	m.HandleNote(midi.NewNoteOn(60, 90))
	m.Stop()

	v, ok := reg.Voice(60)
	require.True(t, ok)
	require.False(t, v.Releasing)
}

func TestManagerConcurrentPlaySong(t *testing.T) {
	var mu sync.Mutex
	sleeping := 0
	sleep := func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		sleeping++
		mu.Unlock()
		<-ctx.Done()
		mu.Lock()
		sleeping--
		mu.Unlock()
		return ctx.Err()
	}
	m := newTestManager(NewPlayer(WithPlayerClock(time.Now, sleep)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, m.PlaySong(noteSong(96*1000), "long.mid"))
		}()
	}
	wg.Wait()
	require.True(t, m.Status().Playing)

	// every session but the last was stopped by its successor
	m.Stop()
	require.False(t, m.Status().Playing)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return sleeping == 0
	}, time.Second, time.Millisecond)
}

func TestManagerRejectsMalformedSong(t *testing.T) {
	m := newTestManager(nil)
	err := m.PlaySong(&Song{Timing: Metrical{}}, "bad.mid")
	require.ErrorIs(t, err, ErrMalformedFile)
	require.False(t, m.Status().Playing)
	require.ErrorIs(t, m.Status().Err, ErrMalformedFile)

	require.Error(t, m.PlayFile("testdata/does-not-exist.mid"))
}

func TestManagerReplay(t *testing.T) {
	clock := newVirtualClock()
	m := newTestManager(NewPlayer(WithPlayerClock(clock.now, clock.sleep)))
	require.Error(t, m.Replay())

	require.NoError(t, m.PlaySong(noteSong(10), "a.mid"))
	m.Wait()
	require.NoError(t, m.Replay())
	m.Wait()
	require.Equal(t, "a.mid", m.Status().File)
	require.Equal(t, 100.0, m.Status().Progress)
}

func TestManagerLiveInput(t *testing.T) {
	m := newTestManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	ctrl := &fakeController{events: make(chan midi.NoteEvent, 4)}
	require.Eventually(t, func() bool {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return m.ctx == ctx
	}, time.Second, time.Millisecond)
	m.SetMIDIInput(ctrl)
	require.Equal(t, "Test Keys", m.Status().Input)

	reg := m.Instrument().Registry()
	ctrl.events <- midi.NewNoteOn(60, 100)
	require.Eventually(t, func() bool { return reg.Len() == 1 }, time.Second, time.Millisecond)

	ctrl.events <- midi.NewNoteOff(60)
	require.Eventually(t, func() bool {
		v, ok := reg.Voice(60)
		return !ok || v.Releasing
	}, time.Second, time.Millisecond)

	ctrl.Close()
	require.Eventually(t, func() bool { return m.Status().Input == "" }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	require.Equal(t, 0, reg.Len())
}

func TestManagerCycleWaveform(t *testing.T) {
	m := newTestManager(nil)
	require.Equal(t, synth.Sawtooth, m.Patch().Waveform)
	require.Equal(t, synth.Triangle, m.CycleWaveform())
	require.Equal(t, synth.Sine, m.CycleWaveform())

	env := synth.Seconds(0.01, 0.1, 0.5, 0.2)
	m.SetEnvelope(env)
	require.Equal(t, env, m.Patch().Envelope)
}
