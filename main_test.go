package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"go-synth/debug"
)

func TestRunBadPatchCleansUp(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.Equal(t, 1, run([]string{"-debug", "-wave", "organ"}))

	data, err := os.ReadFile(filepath.Join(home, ".config", "go-synth", "debug.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "bad synth settings")

	// the debug log was released, so a new one can be opened
	next := filepath.Join(t.TempDir(), "next.log")
	require.NoError(t, debug.EnableFile(next))
	t.Cleanup(debug.Disable)
	require.FileExists(t, next)
}

func TestRunBadFlag(t *testing.T) {
	require.Equal(t, 2, run([]string{"-no-such-flag"}))
}
