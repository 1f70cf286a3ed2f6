package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-synth/theme"
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns the scientific pitch name of a MIDI key (60 = C4).
func NoteName(key uint8) string {
	return fmt.Sprintf("%s%d", noteNames[key%12], int(key)/12-1)
}

// Bar renders frac (0-1) as a bar width cells wide, with half-cell
// resolution.
func Bar(th *theme.Theme, frac float64, width int, fill lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	halves := int(frac * float64(width*2))
	full := halves / 2
	part := halves % 2
	empty := width - full - part

	sym := th.Symbols
	var filled strings.Builder
	filled.WriteString(strings.Repeat(string(sym.Bar), full))
	if part == 1 {
		filled.WriteRune(sym.BarPart)
	}

	on := lipgloss.NewStyle().Foreground(fill)
	off := lipgloss.NewStyle().Foreground(th.Muted())
	return on.Render(filled.String()) + off.Render(strings.Repeat(string(sym.BarNone), empty))
}

// ProgressBar renders a playback percentage with its label.
func ProgressBar(th *theme.Theme, pct float64, width int) string {
	return fmt.Sprintf("%s %3.0f%%", Bar(th, pct/100, width, th.Accent()), pct)
}

// GainMeter renders a voice gain, colored by level.
func GainMeter(th *theme.Theme, gain float32, width int) string {
	return Bar(th, float64(gain), width, th.Color(0.4+0.6*float64(gain)))
}

// KeyState is what the piano strip shows for a key.
type KeyState int

const (
	KeyIdle KeyState = iota
	KeyHeld
	KeyReleasing
)

// PianoStrip renders keys lo..hi as one line, one cell per key, with an
// octave marker before every C.
func PianoStrip(th *theme.Theme, keys map[uint8]KeyState, lo, hi uint8) string {
	sym := th.Symbols
	held := lipgloss.NewStyle().Foreground(th.Active())
	rel := lipgloss.NewStyle().Foreground(th.Cursor())
	idle := lipgloss.NewStyle().Foreground(th.Muted())

	var out strings.Builder
	for k := int(lo); k <= int(hi); k++ {
		key := uint8(k)
		if key%12 == 0 {
			out.WriteString(idle.Render(string(sym.KeyOctave)))
		}
		switch keys[key] {
		case KeyHeld:
			out.WriteString(held.Render(string(sym.KeyHeld)))
		case KeyReleasing:
			out.WriteString(rel.Render(string(sym.KeyRelease)))
		default:
			out.WriteString(idle.Render(string(sym.KeyIdle)))
		}
	}
	return out.String()
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// RenderKeyLine formats key bindings on one line: "p:play  q:quit"
func RenderKeyLine(keys []KeyBinding) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k.Key+":"+k.Desc)
	}
	return strings.Join(parts, "  ")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
