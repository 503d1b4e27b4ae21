package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBinary writes an executable shell script standing in for yt-dlp.
func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell fakes need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestDownload_Success(t *testing.T) {
	bin := fakeBinary(t, `
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; fi
  shift
done
touch "$(echo "$out" | sed 's/%(ext)s/mp3/')"
`)
	dir := t.TempDir()
	d := NewDownloader(bin, dir, "mp3")

	path, err := d.Download(context.Background(), "https://www.youtube.com/watch?v=SA7bKo4HRTg", "My Talk")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "My Talk.mp3"), path)
	assert.FileExists(t, path)
}

func TestDownload_NonZeroExit(t *testing.T) {
	bin := fakeBinary(t, "echo 'ERROR: Unsupported URL' >&2\nexit 1\n")
	d := NewDownloader(bin, t.TempDir(), "mp3")

	_, err := d.Download(context.Background(), "https://example.com/nope", "x")
	var perr *ProcessError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Output, "Unsupported URL")
	assert.Contains(t, perr.Command, "https://example.com/nope")
}

func TestDownload_NoOutputFile(t *testing.T) {
	bin := fakeBinary(t, "exit 0\n")
	d := NewDownloader(bin, t.TempDir(), "mp3")

	_, err := d.Download(context.Background(), "https://www.youtube.com/watch?v=abc", "x")
	require.Error(t, err)
	var perr *ProcessError
	assert.False(t, errors.As(err, &perr))
}

func TestDownload_EmptyURL(t *testing.T) {
	d := NewDownloader("/definitely/not/here", t.TempDir(), "")
	_, err := d.Download(context.Background(), "  ", "x")
	require.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "audio", SanitizeName(""))
	assert.Equal(t, "a_b_c", SanitizeName("a/b:c"))
	assert.Equal(t, "Funniest Leadership Speech ever!", SanitizeName("Funniest Leadership Speech ever!"))
	assert.Equal(t, "audio", SanitizeName("..."))
}
