package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepRemovesOnlyOldFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "nested", "old.mp3")
	fresh := filepath.Join(dir, "fresh.wav")
	require.NoError(t, os.MkdirAll(filepath.Dir(old), 0o755))
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("new"), 0o644))

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, stale, stale))

	s, err := NewScheduler(dir, "@every 30m", 24)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Sweep())
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.DirExists(t, filepath.Dir(old))
}

func TestSweepMissingDir(t *testing.T) {
	s, err := NewScheduler(filepath.Join(t.TempDir(), "absent"), "@hourly", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Sweep())
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(t.TempDir(), "every now and then", 24)
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	dir := t.TempDir()
	s, err := NewScheduler(dir, "@every 1h", 24)
	require.NoError(t, err)
	s.Start()
	s.Stop()
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.DirExists(t, dir)
}
