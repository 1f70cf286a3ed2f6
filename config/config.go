package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go-synth/synth"
)

// InputConfig selects the live MIDI keyboard
type InputConfig struct {
	PortName    string `json:"portName,omitempty"` // substring match, empty = first port
	AutoConnect bool   `json:"autoConnect"`
}

// SynthConfig is the patch new notes get. Times are in seconds.
type SynthConfig struct {
	Waveform string  `json:"waveform"`
	Attack   float64 `json:"attack"`
	Decay    float64 `json:"decay"`
	Sustain  float32 `json:"sustain"`
	Release  float64 `json:"release"`
	Volume   float64 `json:"volume"`
}

// EngineConfig tunes the voice registry and the player
type EngineConfig struct {
	TickMillis      int `json:"tickMillis,omitempty"`
	ToleranceMillis int `json:"toleranceMillis,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette  string `json:"palette,omitempty"`
	LastFile string `json:"lastFile,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Input  InputConfig  `json:"input"`
	Synth  SynthConfig  `json:"synth"`
	Engine EngineConfig `json:"engine,omitempty"`
	UI     UIConfig     `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	env := synth.DefaultEnvelope
	return &Config{
		Input: InputConfig{AutoConnect: true},
		Synth: SynthConfig{
			Waveform: synth.DefaultPatch.Waveform.String(),
			Attack:   env.Attack.Seconds(),
			Decay:    env.Decay.Seconds(),
			Sustain:  env.Sustain,
			Release:  env.Release.Seconds(),
			Volume:   0.8,
		},
		Engine: EngineConfig{
			TickMillis:      int(synth.DefaultTickInterval / time.Millisecond),
			ToleranceMillis: 1,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-synth"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Missing fields keep their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects values the synth cannot use.
func (c *Config) Validate() error {
	if _, err := synth.ParseWaveform(c.Synth.Waveform); err != nil {
		return err
	}
	s := c.Synth
	if s.Attack < 0 || s.Decay < 0 || s.Release < 0 {
		return fmt.Errorf("envelope times must not be negative")
	}
	if s.Sustain < 0 || s.Sustain > 1 {
		return fmt.Errorf("sustain %v out of range [0,1]", s.Sustain)
	}
	if s.Volume < 0 || s.Volume > 1 {
		return fmt.Errorf("volume %v out of range [0,1]", s.Volume)
	}
	if c.Engine.TickMillis < 0 || c.Engine.ToleranceMillis < 0 {
		return fmt.Errorf("engine intervals must not be negative")
	}
	return nil
}

// Patch converts the synth section.
func (c *Config) Patch() (synth.Patch, error) {
	w, err := synth.ParseWaveform(c.Synth.Waveform)
	if err != nil {
		return synth.Patch{}, err
	}
	s := c.Synth
	return synth.Patch{
		Waveform: w,
		Envelope: synth.Seconds(s.Attack, s.Decay, s.Sustain, s.Release),
	}, nil
}

// SetPatch stores p in the synth section.
func (c *Config) SetPatch(p synth.Patch) {
	c.Synth.Waveform = p.Waveform.String()
	c.Synth.Attack = p.Envelope.Attack.Seconds()
	c.Synth.Decay = p.Envelope.Decay.Seconds()
	c.Synth.Sustain = p.Envelope.Sustain
	c.Synth.Release = p.Envelope.Release.Seconds()
}

// TickInterval is the registry tick, or the default when unset.
func (c *Config) TickInterval() time.Duration {
	if c.Engine.TickMillis <= 0 {
		return synth.DefaultTickInterval
	}
	return time.Duration(c.Engine.TickMillis) * time.Millisecond
}

// Tolerance is the player's early-dispatch window.
func (c *Config) Tolerance() time.Duration {
	return time.Duration(c.Engine.ToleranceMillis) * time.Millisecond
}
