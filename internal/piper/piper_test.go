// Package piper_test tests the Piper checker and synthesizer against a fake binary.
//
// These tests do not call t.Parallel: executing a freshly written binary
// races with concurrent forks and fails with ETXTBSY.
package piper_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tom3k5/soulsync-audio/internal/core"
	"github.com/tom3k5/soulsync-audio/internal/piper"
	"github.com/tom3k5/soulsync-audio/internal/piper/pipertest"
)

func createTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	lg, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = lg.Close() })

	return lg
}

type synthFixture struct {
	synth     *piper.Synthesizer
	binary    string
	outputDir string
	scratch   string
	asset     core.VoiceAsset
}

func setupSynth(t *testing.T) synthFixture {
	t.Helper()

	binary := pipertest.Install(t)
	root := t.TempDir()
	fixture := synthFixture{
		binary:    binary,
		outputDir: filepath.Join(root, "assets", "audio"),
		scratch:   filepath.Join(root, "piper_voices", piper.ScratchFileName),
		asset: core.VoiceAsset{
			Name:       "en_US-lessac-medium",
			ModelPath:  filepath.Join(root, "piper_voices", "en_US-lessac-medium.onnx"),
			ConfigPath: filepath.Join(root, "piper_voices", "en_US-lessac-medium.onnx.json"),
		},
	}

	synth, err := piper.NewSynthesizer(piper.Options{
		Binary:      binary,
		OutputDir:   fixture.outputDir,
		ScratchPath: fixture.scratch,
		Tuning:      core.Tuning{LengthScale: 1.5, SentenceSilence: 0.5},
	}, createTestLogger(t))
	require.NoError(t, err)

	fixture.synth = synth

	return fixture
}

func TestChecker_Found(t *testing.T) {
	binary := pipertest.Install(t)

	checker := piper.NewChecker(binary, createTestLogger(t))
	require.NoError(t, checker.Check(context.Background()))
}

func TestChecker_Missing(t *testing.T) {
	checker := piper.NewChecker("piper-definitely-not-installed-here", createTestLogger(t))

	err := checker.Check(context.Background())
	require.ErrorIs(t, err, piper.ErrToolNotFound)
}

func TestChecker_NonzeroVersionExitCountsAsInstalled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old-piper")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 2\n"), 0o700))

	checker := piper.NewChecker(path, createTestLogger(t))
	require.NoError(t, checker.Check(context.Background()))
}

func TestNewSynthesizer_Validation(t *testing.T) {
	lg := createTestLogger(t)

	_, err := piper.NewSynthesizer(piper.Options{OutputDir: "o", ScratchPath: "s"}, lg)
	require.ErrorIs(t, err, piper.ErrBinaryEmpty)

	_, err = piper.NewSynthesizer(piper.Options{Binary: "piper", ScratchPath: "s"}, lg)
	require.ErrorIs(t, err, piper.ErrOutputDirEmpty)

	_, err = piper.NewSynthesizer(piper.Options{Binary: "piper", OutputDir: "o"}, lg)
	require.ErrorIs(t, err, piper.ErrScratchPathEmpty)
}

func TestSynthesize_Success(t *testing.T) {
	fixture := setupSynth(t)
	entry := core.ScriptEntry{
		ID:       "script_qhht_induction",
		Filename: "soul_remembrance.mp3",
		Text:     "Welcome, beautiful soul... Close your eyes gently",
	}

	result, err := fixture.synth.Synthesize(context.Background(), entry, fixture.asset)
	require.NoError(t, err)
	require.True(t, result.OK())

	expectedPath := filepath.Join(fixture.outputDir, "soul_remembrance.mp3")
	assert.Equal(t, expectedPath, result.OutputPath)
	assert.Positive(t, result.Size)

	audio, err := os.ReadFile(expectedPath)
	require.NoError(t, err)
	assert.Equal(t, "RIFFWelcome, beautiful soul. Close your eyes gently.", string(audio),
		"the tool reads the normalized narration on stdin")

	assert.NoFileExists(t, fixture.scratch, "scratch file is removed after synthesis")

	invocations := pipertest.Invocations(t, fixture.binary)
	require.Len(t, invocations, 1)
	assert.Equal(t,
		"--model "+fixture.asset.ModelPath+" --output_file "+expectedPath+
			" --length_scale 1.5 --sentence_silence 0.5",
		invocations[0])
}

func TestSynthesize_ToolFailure(t *testing.T) {
	fixture := setupSynth(t)
	entry := core.ScriptEntry{ID: "bad", Filename: "bad.mp3", Text: pipertest.FailMarker}

	result, err := fixture.synth.Synthesize(context.Background(), entry, fixture.asset)
	require.ErrorIs(t, err, piper.ErrSynthesisFailed)
	assert.Contains(t, err.Error(), "synthesis exploded", "tool output is kept for diagnostics")
	assert.Equal(t, err, result.Err)
	assert.False(t, result.OK())
	assert.NoFileExists(t, result.OutputPath)
	assert.NoFileExists(t, fixture.scratch)
}

func TestSynthesize_EmptyOutput(t *testing.T) {
	fixture := setupSynth(t)
	entry := core.ScriptEntry{ID: "quiet", Filename: "quiet.mp3", Text: pipertest.SilentMarker}

	_, err := fixture.synth.Synthesize(context.Background(), entry, fixture.asset)
	require.ErrorIs(t, err, piper.ErrEmptyOutput)
}

func TestSynthesize_StaleOutputIsNotReported(t *testing.T) {
	fixture := setupSynth(t)
	entry := core.ScriptEntry{ID: "quiet", Filename: "quiet.mp3", Text: pipertest.SilentMarker}

	stalePath := filepath.Join(fixture.outputDir, entry.Filename)
	require.NoError(t, os.MkdirAll(fixture.outputDir, 0o750))
	require.NoError(t, os.WriteFile(stalePath, []byte("RIFF-previous-run"), 0o600))

	result, err := fixture.synth.Synthesize(context.Background(), entry, fixture.asset)
	require.ErrorIs(t, err, piper.ErrEmptyOutput)
	assert.False(t, result.OK())
	assert.Zero(t, result.Size)
	assert.NoFileExists(t, stalePath, "a previous run's file does not count as output")
}

func TestSynthesize_NothingToNarrate(t *testing.T) {
	fixture := setupSynth(t)
	entry := core.ScriptEntry{ID: "blank", Filename: "blank.mp3", Text: "  \n "}

	_, err := fixture.synth.Synthesize(context.Background(), entry, fixture.asset)
	require.ErrorIs(t, err, piper.ErrNothingToNarrate)
	assert.Empty(t, pipertest.Invocations(t, fixture.binary), "tool is not started")
}

func TestSynthesize_CanceledContext(t *testing.T) {
	fixture := setupSynth(t)
	entry := core.ScriptEntry{ID: "a", Filename: "a.mp3", Text: "Breathe."}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fixture.synth.Synthesize(ctx, entry, fixture.asset)
	require.ErrorIs(t, err, piper.ErrSynthesisFailed)
}
