package piper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/book-expert/logger"
	"github.com/tom3k5/soulsync-audio/internal/core"
	"github.com/tom3k5/soulsync-audio/internal/text"
	"github.com/tom3k5/soulsync-audio/internal/ttsutils"
)

// ScratchFileName is the shared text file fed to Piper on stdin.
const ScratchFileName = "temp_script.txt"

const scratchPermissions = 0o600

// Piper command line flags.
const (
	flagModel           = "--model"
	flagOutputFile      = "--output_file"
	flagLengthScale     = "--length_scale"
	flagSentenceSilence = "--sentence_silence"
)

var (
	// ErrSynthesisFailed indicates the Piper process failed.
	ErrSynthesisFailed = errors.New("piper synthesis failed")
	// ErrEmptyOutput indicates Piper exited cleanly without producing audio.
	ErrEmptyOutput = errors.New("piper produced no audio")
	// ErrNothingToNarrate indicates an entry whose text normalizes to nothing.
	ErrNothingToNarrate = errors.New("script has no narratable text")
	// ErrBinaryEmpty indicates the synthesizer was built without a binary.
	ErrBinaryEmpty = errors.New("piper binary cannot be empty")
	// ErrOutputDirEmpty indicates the synthesizer was built without an output directory.
	ErrOutputDirEmpty = errors.New("output directory cannot be empty")
	// ErrScratchPathEmpty indicates the synthesizer was built without a scratch file.
	ErrScratchPathEmpty = errors.New("scratch path cannot be empty")
)

// Options configures a Synthesizer.
type Options struct {
	Binary      string
	OutputDir   string
	ScratchPath string
	Tuning      core.Tuning
}

// Synthesizer narrates script entries with the Piper binary.
//
// The scratch file is shared between calls, so a Synthesizer must not be
// used from more than one goroutine.
type Synthesizer struct {
	preprocessor *text.Preprocessor
	log          *logger.Logger
	opts         Options
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(opts Options, log *logger.Logger) (*Synthesizer, error) {
	if opts.Binary == "" {
		return nil, ErrBinaryEmpty
	}

	if opts.OutputDir == "" {
		return nil, ErrOutputDirEmpty
	}

	if opts.ScratchPath == "" {
		return nil, ErrScratchPathEmpty
	}

	return &Synthesizer{
		preprocessor: text.NewPreprocessor(),
		log:          log,
		opts:         opts,
	}, nil
}

// OutputPath returns where the audio for entry is written.
func (s *Synthesizer) OutputPath(entry core.ScriptEntry) string {
	return filepath.Join(s.opts.OutputDir, entry.Filename)
}

// Synthesize writes entry's text to the scratch file and runs Piper on it.
// The returned result carries the same error as the second return value.
func (s *Synthesizer) Synthesize(
	ctx context.Context,
	entry core.ScriptEntry,
	asset core.VoiceAsset,
) (core.EntryResult, error) {
	result := core.EntryResult{
		Entry:      entry,
		OutputPath: s.OutputPath(entry),
	}

	size, err := s.synthesize(ctx, entry, asset, result.OutputPath)
	if err != nil {
		result.Err = fmt.Errorf("failed to generate '%s': %w", entry.Filename, err)

		return result, result.Err
	}

	result.Size = size

	return result, nil
}

func (s *Synthesizer) synthesize(
	ctx context.Context,
	entry core.ScriptEntry,
	asset core.VoiceAsset,
	outputPath string,
) (int64, error) {
	narration := s.preprocessor.PrepareNarration(entry.Text)
	if narration == "" {
		return 0, fmt.Errorf("%w: '%s'", ErrNothingToNarrate, entry.ID)
	}

	scratchErr := s.writeScratch(narration)
	if scratchErr != nil {
		return 0, scratchErr
	}

	defer s.removeScratch()

	dirErr := ttsutils.EnsureDir(s.opts.OutputDir)
	if dirErr != nil {
		return 0, dirErr
	}

	staleErr := os.Remove(outputPath)
	if staleErr != nil && !errors.Is(staleErr, os.ErrNotExist) {
		return 0, fmt.Errorf("failed to remove previous output '%s': %w", outputPath, staleErr)
	}

	runErr := s.run(ctx, asset, outputPath)
	if runErr != nil {
		return 0, runErr
	}

	size, statErr := ttsutils.FileSize(outputPath)
	if statErr != nil {
		return 0, fmt.Errorf("%w: %w", ErrEmptyOutput, statErr)
	}

	if size == 0 {
		return 0, fmt.Errorf("%w: '%s' is empty", ErrEmptyOutput, outputPath)
	}

	return size, nil
}

func (s *Synthesizer) writeScratch(narration string) error {
	dirErr := ttsutils.EnsureDir(filepath.Dir(s.opts.ScratchPath))
	if dirErr != nil {
		return dirErr
	}

	writeErr := os.WriteFile(s.opts.ScratchPath, []byte(narration), scratchPermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write scratch file '%s': %w", s.opts.ScratchPath, writeErr)
	}

	return nil
}

func (s *Synthesizer) removeScratch() {
	removeErr := os.Remove(s.opts.ScratchPath)
	if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		s.log.Warn("Failed to remove scratch file '%s': %v", s.opts.ScratchPath, removeErr)
	}
}

func (s *Synthesizer) run(ctx context.Context, asset core.VoiceAsset, outputPath string) error {
	stdin, err := os.Open(s.opts.ScratchPath)
	if err != nil {
		return fmt.Errorf("failed to open scratch file '%s': %w", s.opts.ScratchPath, err)
	}
	defer stdin.Close()

	args := s.args(asset, outputPath)

	// #nosec G204 -- binary and model come from local configuration
	cmd := exec.CommandContext(ctx, s.opts.Binary, args...)
	cmd.Stdin = stdin

	output, runErr := cmd.CombinedOutput()
	if runErr != nil {
		return fmt.Errorf("%w: %w - output: %s", ErrSynthesisFailed, runErr, string(output))
	}

	return nil
}

func (s *Synthesizer) args(asset core.VoiceAsset, outputPath string) []string {
	return []string{
		flagModel, asset.ModelPath,
		flagOutputFile, outputPath,
		flagLengthScale, formatFloat(s.opts.Tuning.LengthScale),
		flagSentenceSilence, formatFloat(s.opts.Tuning.SentenceSilence),
	}
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
