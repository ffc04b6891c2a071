package nativelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterAppendsToDailyFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	day := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return day }

	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "stdout_2026-05-04.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestResolveDir(t *testing.T) {
	assert.Equal(t, "/var/log/qalam", ResolveDir(" /var/log/qalam "))
	t.Setenv(EnvLogDir, "/tmp/qalam-logs")
	assert.Equal(t, "/tmp/qalam-logs", ResolveDir(""))
}
