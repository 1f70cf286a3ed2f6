package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

func TestEvery(t *testing.T) {
	var hits int
	for i := 0; i < 10; i++ {
		if Every(4, "test-every") {
			hits++
		}
	}
	// calls 1, 5, 9
	require.Equal(t, 3, hits)
	require.True(t, Every(1, "always"))
}

func TestEnableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug.log")
	require.NoError(t, EnableFile(path))
	t.Cleanup(Disable)
	// a second call keeps the open file
	require.NoError(t, EnableFile(filepath.Join(t.TempDir(), "other.log")))

	log.Default().WithPrefix("test").Debug("hello", "k", 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "hello"), string(data))

	Disable()
	log.Default().WithPrefix("test").Info("after disable")
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "after disable")
}
