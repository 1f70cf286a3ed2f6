package debug

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	file    *os.File
	mu      sync.Mutex
	enabled bool
)

// LogPath returns ~/.config/go-synth/debug.log
func LogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-synth", "debug.log"), nil
}

// Enable sends the default logger to the debug log file at debug level.
// Loggers derived from log.Default() afterwards inherit the file output,
// so call this before building components.
func Enable() error {
	path, err := LogPath()
	if err != nil {
		return err
	}
	return EnableFile(path)
}

// EnableFile is Enable with an explicit path.
func EnableFile(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	file = f
	enabled = true
	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	log.SetReportTimestamp(true)
	log.SetTimeFormat("15:04:05.000")
	log.Debug("=== Debug logging started ===")
	return nil
}

// Disable restores stderr output and closes the file.
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)
	if file != nil {
		file.Close()
		file = nil
	}
	enabled = false
}

var counters = make(map[string]int)

// Every returns true on every nth call for key. Use it to thin out logs
// from hot loops.
func Every(n int, key string) bool {
	if n <= 1 {
		return true
	}
	mu.Lock()
	defer mu.Unlock()
	counters[key]++
	return counters[key]%n == 1
}
