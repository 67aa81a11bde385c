package ttsutils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tom3k5/soulsync-audio/internal/ttsutils"
)

// TestEnsureDir verifies that a directory is created if it doesn't exist.
func TestEnsureDir(t *testing.T) {
	t.Parallel()

	testPath := filepath.Join(t.TempDir(), "new", "dir")

	require.NoError(t, ttsutils.EnsureDir(testPath))

	info, err := os.Stat(testPath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, ttsutils.EnsureDir(testPath), "EnsureDir failed on existing directory")
}

func TestFileExistsAndSize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "voice.onnx")

	assert.False(t, ttsutils.FileExists(path))
	assert.False(t, ttsutils.FileExists(dir), "directories are not files")

	require.NoError(t, os.WriteFile(path, []byte("12345"), 0o600))
	assert.True(t, ttsutils.FileExists(path))

	size, err := ttsutils.FileSize(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	_, err = ttsutils.FileSize(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		expected string
		seconds  float64
	}{
		{name: "seconds", seconds: 45.2, expected: "45.2s"},
		{name: "minutes", seconds: 330.5, expected: "5m 30.5s"},
		{name: "hours", seconds: 4500, expected: "1h 15m"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, ttsutils.FormatDuration(testCase.seconds))
		})
	}
}

func TestFormatFileSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", ttsutils.FormatFileSize(512))
	assert.Equal(t, "1.5 KB", ttsutils.FormatFileSize(1536))
	assert.Equal(t, "2.0 MB", ttsutils.FormatFileSize(2*1024*1024))
	assert.Equal(t, "1.0 GB", ttsutils.FormatFileSize(1024*1024*1024))
}

func TestFormatMegabytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0.00 MB", ttsutils.FormatMegabytes(0))
	assert.Equal(t, "1.50 MB", ttsutils.FormatMegabytes(1572864))
}

func TestIsValidAudioFile(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"a.wav", "b.mp3", "c.FLAC", "d.ogg", "e.m4a", "f.aac"} {
		assert.True(t, ttsutils.IsValidAudioFile(name), name)
	}

	for _, name := range []string{"a.txt", "noext", "b.mp3.json"} {
		assert.False(t, ttsutils.IsValidAudioFile(name), name)
	}
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a_b_c_d", ttsutils.SanitizeFilename("a/b:c*d"))
	assert.Equal(t, "soul_remembrance.mp3", ttsutils.SanitizeFilename("soul_remembrance.mp3"))
}

func TestIsBareFilename(t *testing.T) {
	t.Parallel()

	assert.True(t, ttsutils.IsBareFilename("soul_remembrance.mp3"))
	assert.False(t, ttsutils.IsBareFilename(""))
	assert.False(t, ttsutils.IsBareFilename(".."))
	assert.False(t, ttsutils.IsBareFilename("../escape.mp3"))
	assert.False(t, ttsutils.IsBareFilename("nested/file.mp3"))
}
