// Package config provides the configuration structure for the audio generator.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/pelletier/go-toml/v2"
	"github.com/tom3k5/soulsync-audio/internal/core"
)

// Default values applied to every zero field after decoding.
const (
	DefaultOutputDir       = "assets/audio"
	DefaultVoicesDir       = "scripts/piper_voices"
	DefaultLogsDir         = "logs"
	DefaultBinary          = "piper"
	DefaultLengthScale     = 1.5
	DefaultSentenceSilence = 0.5
	DefaultVoiceName       = "en_US-lessac-medium"
	DefaultVoiceBaseURL    = "https://github.com/rhasspy/piper/releases/download/v1.2.0"
	DefaultNATSURL         = "nats://127.0.0.1:4222"
	DefaultAudioBucket     = "MEDITATION_AUDIO"
	DefaultAudioSubject    = "audio.chunk.created"
)

var (
	// ErrLengthScaleRange indicates a non-positive speech-rate scale.
	ErrLengthScaleRange = errors.New("length_scale must be > 0.0")
	// ErrSentenceSilenceRange indicates a negative inter-sentence pause.
	ErrSentenceSilenceRange = errors.New("sentence_silence must be >= 0.0")
	// ErrDownloadTimeoutNegative indicates a negative download timeout.
	ErrDownloadTimeoutNegative = errors.New("download_timeout_seconds must be non-negative")
	// ErrBucketEmpty indicates NATS publishing is enabled without a bucket.
	ErrBucketEmpty = errors.New("audio_object_store_bucket cannot be empty when nats is enabled")
	// ErrSubjectEmpty indicates NATS publishing is enabled without a subject.
	ErrSubjectEmpty = errors.New("audio_created_subject cannot be empty when nats is enabled")
)

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	OutputDir string `toml:"output_dir"`
	VoicesDir string `toml:"voices_dir"`
	LogsDir   string `toml:"logs_dir"`
}

// PiperConfig holds the synthesis tool invocation settings.
type PiperConfig struct {
	Binary          string  `toml:"binary"`
	LengthScale     float64 `toml:"length_scale"`
	SentenceSilence float64 `toml:"sentence_silence"`
}

// VoiceConfig identifies the voice model and where to fetch it from.
type VoiceConfig struct {
	Name                   string `toml:"name"`
	BaseURL                string `toml:"base_url"`
	DownloadTimeoutSeconds int    `toml:"download_timeout_seconds"`
}

// RunConfig holds batch behavior switches.
type RunConfig struct {
	AllowPartial bool `toml:"allow_partial"`
}

// NATSConfig holds the configuration for the optional artifact publisher.
type NATSConfig struct {
	Enabled                bool   `toml:"enabled"`
	URL                    string `toml:"url"`
	AudioObjectStoreBucket string `toml:"audio_object_store_bucket"`
	AudioCreatedSubject    string `toml:"audio_created_subject"`
}

// Config is the root configuration structure.
type Config struct {
	Paths PathsConfig `toml:"paths"`
	Piper PiperConfig `toml:"piper"`
	Voice VoiceConfig `toml:"voice"`
	Run   RunConfig   `toml:"run"`
	NATS  NATSConfig  `toml:"nats"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()

	return cfg
}

// Load loads the configuration through the central configurator.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return finalize(&cfg)
}

// LoadFile loads the configuration from an explicit TOML file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return Parse(data)
}

// Parse decodes TOML data into a validated configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	err := toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return finalize(&cfg)
}

func finalize(cfg *Config) (*Config, error) {
	cfg.ApplyDefaults()

	validationErr := cfg.Validate()
	if validationErr != nil {
		return nil, validationErr
	}

	return cfg, nil
}

// ApplyDefaults fills every zero field with its default.
func (c *Config) ApplyDefaults() {
	setDefault(&c.Paths.OutputDir, DefaultOutputDir)
	setDefault(&c.Paths.VoicesDir, DefaultVoicesDir)
	setDefault(&c.Paths.LogsDir, DefaultLogsDir)
	setDefault(&c.Piper.Binary, DefaultBinary)
	setDefault(&c.Voice.Name, DefaultVoiceName)
	setDefault(&c.Voice.BaseURL, DefaultVoiceBaseURL)
	setDefault(&c.NATS.URL, DefaultNATSURL)
	setDefault(&c.NATS.AudioObjectStoreBucket, DefaultAudioBucket)
	setDefault(&c.NATS.AudioCreatedSubject, DefaultAudioSubject)

	if c.Piper.LengthScale == 0 {
		c.Piper.LengthScale = DefaultLengthScale
	}

	if c.Piper.SentenceSilence == 0 {
		c.Piper.SentenceSilence = DefaultSentenceSilence
	}
}

// Validate ensures the configuration holds usable values.
func (c *Config) Validate() error {
	if c.Piper.LengthScale <= 0.0 {
		return fmt.Errorf("%w: got %f", ErrLengthScaleRange, c.Piper.LengthScale)
	}

	if c.Piper.SentenceSilence < 0.0 {
		return fmt.Errorf("%w: got %f", ErrSentenceSilenceRange, c.Piper.SentenceSilence)
	}

	if c.Voice.DownloadTimeoutSeconds < 0 {
		return fmt.Errorf("%w: got %d", ErrDownloadTimeoutNegative, c.Voice.DownloadTimeoutSeconds)
	}

	if c.NATS.Enabled {
		if c.NATS.AudioObjectStoreBucket == "" {
			return ErrBucketEmpty
		}

		if c.NATS.AudioCreatedSubject == "" {
			return ErrSubjectEmpty
		}
	}

	return nil
}

// DownloadTimeout returns the per-request download timeout; zero means none.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Voice.DownloadTimeoutSeconds) * time.Second
}

// Tuning returns the synthesis parameters passed to the tool.
func (c *Config) Tuning() core.Tuning {
	return core.Tuning{
		LengthScale:     c.Piper.LengthScale,
		SentenceSilence: c.Piper.SentenceSilence,
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
