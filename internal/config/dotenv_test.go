package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotenv_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n" +
		"VID2POD_TEST_A=alpha\n" +
		"this line is not an assignment\n" +
		"\n" +
		"VID2POD_TEST_B=\"quoted value\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("VID2POD_TEST_A", "")
	os.Unsetenv("VID2POD_TEST_A")
	t.Setenv("VID2POD_TEST_B", "")
	os.Unsetenv("VID2POD_TEST_B")

	n, err := LoadDotenv(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "alpha", os.Getenv("VID2POD_TEST_A"))
	assert.Equal(t, "quoted value", os.Getenv("VID2POD_TEST_B"))
}

func TestLoadDotenv_ExistingEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("VID2POD_TEST_C=from-file\n"), 0o600))
	t.Setenv("VID2POD_TEST_C", "from-env")

	n, err := LoadDotenv(path)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, "from-env", os.Getenv("VID2POD_TEST_C"))
}

func TestLoadDotenv_MissingFile(t *testing.T) {
	n, err := LoadDotenv(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
	assert.Zero(t, n)
}
