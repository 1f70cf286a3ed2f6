package sequencer

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"

	"go-synth/midi"
	"go-synth/synth"
)

// Manager owns the instrument and routes notes to it from file playback
// and live MIDI input.
type Manager struct {
	inst   *synth.Instrument
	player *Player

	// session serialises replacing and stopping playback
	session sync.Mutex

	mu     sync.RWMutex
	status Status
	ctx    context.Context
	cancel context.CancelFunc // current playback
	done   chan struct{}
	held   map[uint8]bool // keys sounding from playback

	lastSong *Song
	lastName string

	// MIDI input
	midiInputChan chan midi.NoteEvent

	// Notify TUI of updates
	UpdateChan chan struct{}

	logger *log.Logger
}

// NewManager creates a manager around inst. A nil player gets the default.
func NewManager(inst *synth.Instrument, player *Player) *Manager {
	if player == nil {
		player = NewPlayer()
	}
	return &Manager{
		inst:          inst,
		player:        player,
		ctx:           context.Background(),
		midiInputChan: make(chan midi.NoteEvent, 32),
		UpdateChan:    make(chan struct{}, 1),
		logger:        log.Default().WithPrefix("sequencer"),
	}
}

func (m *Manager) Instrument() *synth.Instrument {
	return m.inst
}

// Run drives the voice registry and live input until ctx is done. Playback
// is stopped and all voices are closed on return.
func (m *Manager) Run(ctx context.Context) {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.inst.Registry().Run(ctx)
	}()

	m.midiInputLoop(ctx)
	m.Stop()
	wg.Wait()
}

func (m *Manager) midiInputLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-m.midiInputChan:
			m.HandleNote(evt)
		}
	}
}

// SetMIDIInput forwards ctrl's notes to the instrument until its channel
// closes.
func (m *Manager) SetMIDIInput(ctrl midi.Controller) {
	if ctrl == nil {
		return
	}
	m.mu.Lock()
	m.status.Input = ctrl.ID()
	ctx := m.ctx
	m.mu.Unlock()
	m.notifyUpdate()

	go func() {
		for evt := range ctrl.NoteEvents() {
			select {
			case m.midiInputChan <- evt:
			case <-ctx.Done():
				return
			}
		}
		m.mu.Lock()
		if m.status.Input == ctrl.ID() {
			m.status.Input = ""
		}
		m.mu.Unlock()
		m.notifyUpdate()
	}()
}

// HandleNote plays a live note event immediately. A live note-on takes
// the key over from playback, so stopping playback leaves it sounding.
func (m *Manager) HandleNote(evt midi.NoteEvent) {
	if evt.IsOn() {
		m.mu.Lock()
		delete(m.held, evt.Key)
		m.mu.Unlock()
	}
	m.play(evt)
}

func (m *Manager) play(evt midi.NoteEvent) {
	if err := m.inst.HandleNote(evt); err != nil {
		m.logger.Error("note dropped", "key", evt.Key, "err", err)
		m.setErr(err)
	}
	m.notifyUpdate()
}

// PlayFile loads path and starts playing it, replacing any current playback.
func (m *Manager) PlayFile(path string) error {
	song, err := LoadFile(path)
	if err != nil {
		m.setErr(err)
		return err
	}
	return m.PlaySong(song, filepath.Base(path))
}

// Replay restarts the last song.
func (m *Manager) Replay() error {
	m.mu.RLock()
	song, name := m.lastSong, m.lastName
	m.mu.RUnlock()
	if song == nil {
		return errors.New("nothing to replay")
	}
	return m.PlaySong(song, name)
}

// PlaySong starts playing song in the background.
func (m *Manager) PlaySong(song *Song, name string) error {
	a, err := Analyze(song)
	if err != nil {
		m.setErr(err)
		return err
	}

	m.session.Lock()
	defer m.session.Unlock()
	m.stop()

	m.mu.Lock()
	ctx, cancel := context.WithCancel(m.ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.held = make(map[uint8]bool)
	m.lastSong = song
	m.lastName = name
	m.status.Playing = true
	m.status.File = name
	m.status.Progress = 0
	m.status.Tempo = a.Tempo
	m.status.Timing = song.Timing.String()
	m.status.Length = a.Length
	m.status.Tracks = len(song.Tracks)
	m.status.Notes = a.Notes
	m.status.Err = nil
	m.mu.Unlock()

	m.logger.Info("playing", "file", name, "tracks", len(song.Tracks), "tempo", a.Tempo, "length", a.Length)
	m.notifyUpdate()

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(done)

		err := m.player.Play(ctx, song, m.dispatch, m.setProgress)
		m.releaseHeld()

		m.mu.Lock()
		if m.done == done {
			m.status.Playing = false
			if err != nil && !errors.Is(err, context.Canceled) {
				m.status.Err = err
			}
		}
		m.mu.Unlock()

		if err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("playback failed", "file", name, "err", err)
		} else {
			m.logger.Debug("playback finished", "file", name, "err", err)
		}
		m.notifyUpdate()
	}()
	return nil
}

// Stop cancels playback, waits for it to end and releases the notes it
// left sounding. Live notes are not touched.
func (m *Manager) Stop() {
	m.session.Lock()
	defer m.session.Unlock()
	m.stop()
}

func (m *Manager) stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	m.mu.Lock()
	m.status.Playing = false
	m.mu.Unlock()
	m.notifyUpdate()
}

// Wait blocks until the current playback, if any, ends.
func (m *Manager) Wait() {
	m.mu.RLock()
	done := m.done
	m.mu.RUnlock()
	if done != nil {
		<-done
	}
}

func (m *Manager) dispatch(evt midi.NoteEvent) {
	m.mu.Lock()
	switch {
	case evt.IsOn():
		m.held[evt.Key] = true
	case evt.IsOff():
		delete(m.held, evt.Key)
	}
	m.mu.Unlock()
	m.play(evt)
}

func (m *Manager) releaseHeld() {
	m.mu.Lock()
	keys := make([]uint8, 0, len(m.held))
	for k := range m.held {
		keys = append(keys, k)
	}
	m.held = make(map[uint8]bool)
	m.mu.Unlock()

	for _, k := range keys {
		m.inst.Registry().Release(synth.NoteID(k))
	}
}

func (m *Manager) setProgress(pct float64) {
	m.mu.Lock()
	m.status.Progress = pct
	m.mu.Unlock()
	m.notifyUpdate()
}

func (m *Manager) setErr(err error) {
	m.mu.Lock()
	m.status.Err = err
	m.mu.Unlock()
	m.notifyUpdate()
}

// Status returns a snapshot for display.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Voices returns the sounding voices.
func (m *Manager) Voices() []synth.VoiceInfo {
	return m.inst.Registry().Voices()
}

// Patch returns the sound for new notes.
func (m *Manager) Patch() synth.Patch {
	return m.inst.Patch()
}

// CycleWaveform switches new notes to the next waveform.
func (m *Manager) CycleWaveform() synth.Waveform {
	p := m.inst.Patch()
	p.Waveform = p.Waveform.Next()
	m.inst.SetPatch(p)
	m.logger.Debug("waveform", "wave", p.Waveform)
	m.notifyUpdate()
	return p.Waveform
}

// SetEnvelope changes the envelope for new notes.
func (m *Manager) SetEnvelope(env synth.Envelope) {
	p := m.inst.Patch()
	p.Envelope = env
	m.inst.SetPatch(p)
	m.notifyUpdate()
}

// notifyUpdate signals the TUI to re-render
func (m *Manager) notifyUpdate() {
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}
