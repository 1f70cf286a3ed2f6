package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-synth/synth"
)

func TestDefaultConfigMatchesDefaultPatch(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	p, err := cfg.Patch()
	require.NoError(t, err)
	require.Equal(t, synth.DefaultPatch, p)
	require.Equal(t, synth.DefaultTickInterval, cfg.TickInterval())
	require.Equal(t, time.Millisecond, cfg.Tolerance())
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")

	cfg := DefaultConfig()
	cfg.Input.PortName = "Keystation"
	cfg.SetPatch(synth.Patch{
		Waveform: synth.Square,
		Envelope: synth.Seconds(0.01, 0.2, 0.5, 0.3),
	})
	require.NoError(t, cfg.SaveTo(path))

	got, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, cfg, got)

	p, err := got.Patch()
	require.NoError(t, err)
	require.Equal(t, synth.Square, p.Waveform)
	require.Equal(t, 300*time.Millisecond, p.Envelope.Release)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"synth":{"waveform":"sine"}}`), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, "sine", cfg.Synth.Waveform)
	require.True(t, cfg.Input.AutoConnect)
	require.Equal(t, synth.DefaultTickInterval, cfg.TickInterval())
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"syntax":   `{"synth":`,
		"waveform": `{"synth":{"waveform":"noise"}}`,
		"sustain":  `{"synth":{"waveform":"sine","sustain":1.5}}`,
		"attack":   `{"synth":{"waveform":"sine","attack":-1}}`,
		"volume":   `{"synth":{"waveform":"sine","volume":2}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := LoadFrom(path)
			require.Error(t, err)
		})
	}
}
