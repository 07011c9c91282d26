package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runStart = time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

func TestLogFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("logs", "railsim.20260212_213836.log"),
		LogFilePath("logs", "railsim", runStart))
	assert.Equal(t,
		filepath.Join("/var", "log", "railcore", "railsim.20260212_213836.log"),
		LogFilePath(filepath.Join("/var", "log", "railcore"), "railsim", runStart))
}

func TestOpenLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	f, err := OpenLogFile(dir, "railsim", runStart)
	require.NoError(t, err)
	_, err = f.WriteString("first run\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = OpenLogFile(dir, "railsim", runStart)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	path := LogFilePath(dir, "railsim", runStart)
	old, err := os.ReadFile(path + ".old")
	require.NoError(t, err)
	assert.Equal(t, "first run\n", string(old))

	cur, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, cur)
}
