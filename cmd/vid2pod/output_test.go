package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/video2podcast/internal/storage"
)

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.txt")
	require.NoError(t, storage.WriteText(path, "from file"))

	got, err := readInput(path, "inline", "transcription")
	require.NoError(t, err)
	assert.Equal(t, "from file", got, "a file wins over inline text")

	got, err = readInput("", "inline", "transcription")
	require.NoError(t, err)
	assert.Equal(t, "inline", got)

	_, err = readInput("", "", "comments")
	assert.EqualError(t, err, "please provide either a comments file or direct comments text")
}

func TestWriteOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, writeOutput(&stdout, &stderr, "", "dialogue text", "dialogue"))
	assert.Equal(t, "dialogue text\n", stdout.String())

	stdout.Reset()
	path := filepath.Join(t.TempDir(), "out", "d.txt")
	require.NoError(t, writeOutput(&stdout, &stderr, path, "saved", "dialogue"))
	assert.Empty(t, stdout.String())
	got, err := storage.ReadText(path)
	require.NoError(t, err)
	assert.Equal(t, "saved", got)

	stderr.Reset()
	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, writeOutput(&stdout, &stderr, empty, "  ", "questions"))
	assert.Contains(t, stderr.String(), "No questions returned")
	assert.NoFileExists(t, empty)
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"serve", "dialogue", "questions", "comments", "transcript", "fetch", "download", "transcribe", "drive-auth"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
