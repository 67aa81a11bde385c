// Package config_test tests the configuration loading for the audio generator.
package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tom3k5/soulsync-audio/internal/config"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()

	tomlData := `
[paths]
output_dir = "out/audio"
voices_dir = "out/voices"
logs_dir = "out/logs"

[piper]
binary = "/usr/local/bin/piper"
length_scale = 1.2
sentence_silence = 0.8

[voice]
name = "en_GB-alan-medium"
base_url = "https://example.com/voices"
download_timeout_seconds = 120

[run]
allow_partial = true

[nats]
enabled = true
url = "nats://10.0.0.1:4222"
audio_object_store_bucket = "AUDIO"
audio_created_subject = "audio.created"
`

	cfg, err := config.Parse([]byte(tomlData))
	require.NoError(t, err)

	assert.Equal(t, "out/audio", cfg.Paths.OutputDir)
	assert.Equal(t, "out/voices", cfg.Paths.VoicesDir)
	assert.Equal(t, "out/logs", cfg.Paths.LogsDir)
	assert.Equal(t, "/usr/local/bin/piper", cfg.Piper.Binary)
	assert.InEpsilon(t, 1.2, cfg.Piper.LengthScale, 0.001)
	assert.InEpsilon(t, 0.8, cfg.Piper.SentenceSilence, 0.001)
	assert.Equal(t, "en_GB-alan-medium", cfg.Voice.Name)
	assert.Equal(t, "https://example.com/voices", cfg.Voice.BaseURL)
	assert.Equal(t, 120*time.Second, cfg.DownloadTimeout())
	assert.True(t, cfg.Run.AllowPartial)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "nats://10.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "AUDIO", cfg.NATS.AudioObjectStoreBucket)
	assert.Equal(t, "audio.created", cfg.NATS.AudioCreatedSubject)
}

func TestParseConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte(""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultOutputDir, cfg.Paths.OutputDir)
	assert.Equal(t, config.DefaultVoicesDir, cfg.Paths.VoicesDir)
	assert.Equal(t, config.DefaultBinary, cfg.Piper.Binary)
	assert.InEpsilon(t, 1.5, cfg.Piper.LengthScale, 0.001)
	assert.InEpsilon(t, 0.5, cfg.Piper.SentenceSilence, 0.001)
	assert.Equal(t, "en_US-lessac-medium", cfg.Voice.Name)
	assert.Equal(t, config.DefaultVoiceBaseURL, cfg.Voice.BaseURL)
	assert.Zero(t, cfg.DownloadTimeout())
	assert.False(t, cfg.Run.AllowPartial)
	assert.False(t, cfg.NATS.Enabled)

	tuning := cfg.Tuning()
	assert.InEpsilon(t, 1.5, tuning.LengthScale, 0.001)
	assert.InEpsilon(t, 0.5, tuning.SentenceSilence, 0.001)
}

func TestParseConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{
			name:    "negative length scale",
			data:    "[piper]\nlength_scale = -1.0\n",
			wantErr: config.ErrLengthScaleRange,
		},
		{
			name:    "negative sentence silence",
			data:    "[piper]\nsentence_silence = -0.1\n",
			wantErr: config.ErrSentenceSilenceRange,
		},
		{
			name:    "negative timeout",
			data:    "[voice]\ndownload_timeout_seconds = -5\n",
			wantErr: config.ErrDownloadTimeoutNegative,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Parse([]byte(testCase.data))
			require.ErrorIs(t, err, testCase.wantErr)
		})
	}
}

func TestParseConfig_Malformed(t *testing.T) {
	t.Parallel()

	_, err := config.Parse([]byte("[paths\noutput_dir = "))
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "project.toml")
	err := os.WriteFile(path, []byte("[voice]\nname = \"en_US-amy-low\"\n"), 0o600)
	require.NoError(t, err)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "en_US-amy-low", cfg.Voice.Name)

	_, err = config.LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestValidate_NATSRequiresBucketAndSubject(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.NATS.Enabled = true
	cfg.NATS.AudioObjectStoreBucket = ""
	require.ErrorIs(t, cfg.Validate(), config.ErrBucketEmpty)

	cfg = config.Default()
	cfg.NATS.Enabled = true
	cfg.NATS.AudioCreatedSubject = ""
	require.ErrorIs(t, cfg.Validate(), config.ErrSubjectEmpty)
}
