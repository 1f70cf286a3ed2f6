package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"go-synth/midi"
	"go-synth/sequencer"
	"go-synth/synth"
	"go-synth/theme"
	"go-synth/widgets"
)

type silentOutput struct{}

func (silentOutput) SetGain(float32) {}
func (silentOutput) Close() error { return nil }

type silentSink struct{}

func (silentSink) Open(synth.Source) (synth.Output, error) { return silentOutput{}, nil }

func newTestModel() Model {
	inst := synth.NewInstrument(synth.NewRegistry(silentSink{}), synth.DefaultPatch)
	return NewModel(sequencer.NewManager(inst, nil), nil, theme.New(nil), "")
}

func press(m Model, key rune) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{key}})
	return next.(Model)
}

func TestCycleWaveformKey(t *testing.T) {
	m := newTestModel()
	m = press(m, 'w')
	require.Equal(t, synth.Triangle, m.Manager.Patch().Waveform)
	require.Contains(t, m.View(), "wave: triangle")
}

func TestPlayWithoutFileIsNoop(t *testing.T) {
	m := newTestModel()
	m = press(m, 'p')
	require.False(t, m.Manager.Status().Playing)
	m = press(m, 'o')
	require.False(t, m.Manager.Status().Playing)
}

func TestQuit(t *testing.T) {
	m := newTestModel()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	require.Empty(t, next.(Model).View())
}

func TestViewShowsVoices(t *testing.T) {
	m := newTestModel()
	m.Manager.HandleNote(midi.NewNoteOn(60, 127))
	m.Manager.HandleNote(midi.NewNoteOn(64, 127))
	m.Manager.HandleNote(midi.NewNoteOff(64))

	view := m.View()
	require.Contains(t, view, "C4")
	require.Contains(t, view, "E4")
	require.Contains(t, view, "rel")
	require.Contains(t, view, "input: none")
	require.Contains(t, view, widgets.RenderKeyLine(keys))
}

func TestKeyStates(t *testing.T) {
	states := keyStates([]synth.VoiceInfo{
		{ID: 60},
		{ID: 62, Releasing: true, Released: time.Now()},
	})
	require.Equal(t, widgets.KeyHeld, states[60])
	require.Equal(t, widgets.KeyReleasing, states[62])
	require.Equal(t, widgets.KeyIdle, states[61])
}

func TestHelpToggle(t *testing.T) {
	m := newTestModel()
	require.NotContains(t, m.View(), "Playback")

	m = press(m, '?')
	view := m.View()
	require.Contains(t, view, "Playback")
	require.Contains(t, view, "toggle this help")
	require.NotContains(t, view, widgets.RenderKeyLine(keys))

	m = press(m, '?')
	require.NotContains(t, m.View(), "Playback")
}
