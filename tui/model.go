package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-synth/midi"
	"go-synth/sequencer"
	"go-synth/synth"
	"go-synth/theme"
	"go-synth/widgets"
)

// Redraw rate while voices are fading
const frameRate = 30

// Piano strip range
const (
	stripLo = 36
	stripHi = 83
)

const maxVoiceRows = 8

var keys = []widgets.KeyBinding{
	{Key: "p", Desc: "play/stop"},
	{Key: "o", Desc: "replay"},
	{Key: "w", Desc: "waveform"},
	{Key: "?", Desc: "help"},
	{Key: "q", Desc: "quit"},
}

var helpSections = []widgets.KeySection{
	{Title: "Playback", Keys: []widgets.KeyBinding{
		{Key: "p", Desc: "play the file, or stop playback"},
		{Key: "o", Desc: "replay from the start"},
	}},
	{Title: "Sound", Keys: []widgets.KeyBinding{
		{Key: "w", Desc: "next waveform for new notes"},
	}},
	{Title: "General", Keys: []widgets.KeyBinding{
		{Key: "?", Desc: "toggle this help"},
		{Key: "q / ctrl+c", Desc: "quit"},
	}},
}

type Model struct {
	Manager   *sequencer.Manager
	DeviceMgr *midi.DeviceManager
	Theme     *theme.Theme
	file      string // played on "p" when nothing has played yet
	width     int
	showHelp  bool
	quitting  bool
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

type frameMsg time.Time

func NewModel(manager *sequencer.Manager, deviceMgr *midi.DeviceManager, th *theme.Theme, file string) Model {
	return Model{
		Manager:   manager,
		DeviceMgr: deviceMgr,
		Theme:     th,
		file:      file,
		width:     60,
	}
}

func ListenForUpdates(manager *sequencer.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	if deviceMgr == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForUpdates(m.Manager), frame()}
	if cmd := ListenForDevices(m.DeviceMgr); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.Manager.Stop()
			return m, tea.Quit

		case "p":
			if m.Manager.Status().Playing {
				m.Manager.Stop()
			} else if err := m.Manager.Replay(); err != nil && m.file != "" {
				m.Manager.PlayFile(m.file)
			}

		case "o":
			if err := m.Manager.Replay(); err != nil && m.file != "" {
				m.Manager.PlayFile(m.file)
			}

		case "w":
			m.Manager.CycleWaveform()

		case "?":
			m.showHelp = !m.showHelp
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case UpdateMsg:
		return m, ListenForUpdates(m.Manager)

	case frameMsg:
		return m, frame()

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		if event.Type == midi.DeviceConnected {
			m.Manager.SetMIDIInput(event.Controller)
		}
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.Manager.Status()
	voices := m.Manager.Voices()
	patch := m.Manager.Patch()

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	fgStyle := lipgloss.NewStyle().Foreground(m.Theme.FG())
	errStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	playState := "STOP"
	if st.Playing {
		playState = "PLAY"
	}
	file := st.File
	if file == "" {
		file = "-"
	}
	header := headerStyle.Render(fmt.Sprintf("go-synth  %s  %s  %5.1fbpm  %d tracks", playState, file, st.BPM(), st.Tracks))

	barWidth := m.width - 8
	if barWidth > 60 {
		barWidth = 60
	}
	if barWidth < 10 {
		barWidth = 10
	}
	progress := widgets.ProgressBar(m.Theme, st.Progress, barWidth)

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(progress)
	out.WriteString("\n\n")
	out.WriteString(widgets.PianoStrip(m.Theme, keyStates(voices), stripLo, stripHi))
	out.WriteString("\n\n")
	out.WriteString(m.renderVoices(voices))
	out.WriteString("\n")
	out.WriteString(fgStyle.Render(renderPatch(patch)))
	out.WriteString("\n")

	input := st.Input
	if input == "" {
		input = "none"
	}
	out.WriteString(dimStyle.Render("input: " + input))
	out.WriteString("\n")

	if st.Err != nil {
		out.WriteString(errStyle.Render("error: " + st.Err.Error()))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	if m.showHelp {
		out.WriteString(fgStyle.Render(widgets.RenderKeyHelp(helpSections)))
	} else {
		out.WriteString(dimStyle.Render(widgets.RenderKeyLine(keys)))
	}
	return out.String()
}

func (m Model) renderVoices(voices []synth.VoiceInfo) string {
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	if len(voices) == 0 {
		return dimStyle.Render("no voices") + "\n"
	}

	var out strings.Builder
	for i, v := range voices {
		if i == maxVoiceRows {
			out.WriteString(dimStyle.Render(fmt.Sprintf("+%d more", len(voices)-maxVoiceRows)))
			out.WriteString("\n")
			break
		}
		state := ""
		if v.Releasing {
			state = "rel"
		}
		out.WriteString(fmt.Sprintf("%-4s %s %.2f %s\n",
			widgets.NoteName(uint8(v.ID)), widgets.GainMeter(m.Theme, v.Gain, 16), v.Gain, state))
	}
	return out.String()
}

func renderPatch(p synth.Patch) string {
	e := p.Envelope
	return fmt.Sprintf("wave: %-8s A %.3fs  D %.3fs  S %.2f  R %.3fs",
		p.Waveform, e.Attack.Seconds(), e.Decay.Seconds(), e.Sustain, e.Release.Seconds())
}

func keyStates(voices []synth.VoiceInfo) map[uint8]widgets.KeyState {
	states := make(map[uint8]widgets.KeyState, len(voices))
	for _, v := range voices {
		if v.Releasing {
			states[uint8(v.ID)] = widgets.KeyReleasing
		} else {
			states[uint8(v.ID)] = widgets.KeyHeld
		}
	}
	return states
}
