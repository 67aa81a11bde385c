package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/tom3k5/soulsync-audio/internal/config"
	"github.com/tom3k5/soulsync-audio/internal/core"
	"github.com/tom3k5/soulsync-audio/internal/objectstore"
	"github.com/tom3k5/soulsync-audio/internal/piper"
	"github.com/tom3k5/soulsync-audio/internal/publisher"
	"github.com/tom3k5/soulsync-audio/internal/registry"
	"github.com/tom3k5/soulsync-audio/internal/voice"
)

const (
	bootstrapLogFile = "audio-generator-bootstrap.log"
	finalLogFile     = "audio-generator.log"
)

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	bootstrapLog *logger.Logger
}

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger in '%s': %w", logPath, err)
	}

	return log, nil
}

// newApp creates the bootstrap logger, loads configuration and opens the
// final logger in the configured logs directory.
func newApp(configPath string) (*app, error) {
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return nil, err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	cfg, err := loadConfig(configPath, bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)
		_ = bootstrapLog.Close()

		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	finalLog, err := setupLogger(cfg.Paths.LogsDir, finalLogFile)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)
		_ = bootstrapLog.Close()

		return nil, fmt.Errorf("failed to create final logger: %w", err)
	}

	return &app{
		cfg:          cfg,
		log:          finalLog,
		bootstrapLog: bootstrapLog,
	}, nil
}

// loadConfig reads an explicit file when given. Otherwise it asks the
// configurator and falls back to the built-in defaults.
func loadConfig(configPath string, log *logger.Logger) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}

	cfg, err := config.Load(log)
	if err != nil {
		log.Warn("No project configuration, using defaults: %v", err)

		return config.Default(), nil
	}

	return cfg, nil
}

func (a *app) Close() {
	closeErr := a.log.Close()
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
	}

	closeErr = a.bootstrapLog.Close()
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "error closing bootstrap logger: %v\n", closeErr)
	}
}

func (a *app) checker() *piper.Checker {
	return piper.NewChecker(a.cfg.Piper.Binary, a.log)
}

func (a *app) fetcher() (*voice.Fetcher, error) {
	fetcher, err := voice.NewFetcher(voice.Options{
		Name:    a.cfg.Voice.Name,
		BaseURL: a.cfg.Voice.BaseURL,
		Dir:     a.cfg.Paths.VoicesDir,
		Timeout: a.cfg.DownloadTimeout(),
	}, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create voice fetcher: %w", err)
	}

	return fetcher, nil
}

func (a *app) synthesizer() (*piper.Synthesizer, error) {
	synth, err := piper.NewSynthesizer(piper.Options{
		Binary:      a.cfg.Piper.Binary,
		OutputDir:   a.cfg.Paths.OutputDir,
		ScratchPath: filepath.Join(a.cfg.Paths.VoicesDir, piper.ScratchFileName),
		Tuning:      a.cfg.Tuning(),
	}, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}

	return synth, nil
}

// registry returns the built-in scripts, extended with scriptsPath and
// narrowed to only when those are set.
func (a *app) registry(scriptsPath string, only []string) (*registry.Registry, error) {
	reg, err := registry.Builtin()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in scripts: %w", err)
	}

	if scriptsPath != "" {
		extra, loadErr := registry.LoadFile(scriptsPath)
		if loadErr != nil {
			return nil, loadErr
		}

		reg, err = reg.Append(extra...)
		if err != nil {
			return nil, fmt.Errorf("failed to add scripts from '%s': %w", scriptsPath, err)
		}
	}

	if len(only) > 0 {
		reg, err = reg.Filter(only)
		if err != nil {
			return nil, fmt.Errorf("failed to select scripts: %w", err)
		}
	}

	return reg, nil
}

// publisher connects to NATS when publishing is enabled and returns a nil
// Publisher otherwise. The returned close function is never nil.
func (a *app) publisher() (core.Publisher, func(), error) {
	noop := func() {}

	if !a.cfg.NATS.Enabled {
		return nil, noop, nil
	}

	natsConnection, err := nats.Connect(a.cfg.NATS.URL)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to connect to NATS at %s: %w", a.cfg.NATS.URL, err)
	}

	closeConnection := func() {
		drainErr := natsConnection.Drain()
		if drainErr != nil {
			a.log.Warn("Failed to drain NATS connection: %v", drainErr)
		}
	}

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		natsConnection.Close()

		return nil, noop, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, a.cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		natsConnection.Close()

		return nil, noop, err
	}

	pub, err := publisher.NewNatsPublisher(
		natsConnection, store, a.cfg.NATS.AudioCreatedSubject, uuid.NewString(), a.log,
	)
	if err != nil {
		natsConnection.Close()

		return nil, noop, fmt.Errorf("failed to create publisher: %w", err)
	}

	a.log.System("Publishing run %s to bucket %s on subject %s",
		pub.RunID(), store.Bucket(), a.cfg.NATS.AudioCreatedSubject)

	return pub, closeConnection, nil
}
