// Package pipeline runs one generation pass: check the tool, make sure the
// voice is present, narrate every entry in order, then report and publish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/book-expert/logger"
	"github.com/tom3k5/soulsync-audio/internal/core"
	"github.com/tom3k5/soulsync-audio/internal/report"
	"github.com/tom3k5/soulsync-audio/internal/ttsutils"
)

const separatorWidth = 60

var (
	// ErrEntriesFailed indicates that at least one entry produced no audio.
	ErrEntriesFailed = errors.New("one or more scripts failed to generate")
	// ErrCheckerNil indicates that no tool checker was provided.
	ErrCheckerNil = errors.New("tool checker cannot be nil")
	// ErrFetcherNil indicates that no asset fetcher was provided.
	ErrFetcherNil = errors.New("asset fetcher cannot be nil")
	// ErrSynthesizerNil indicates that no synthesizer was provided.
	ErrSynthesizerNil = errors.New("synthesizer cannot be nil")
)

// Options wires the stages of a run. Publisher is optional.
type Options struct {
	Checker      core.ToolChecker
	Fetcher      core.AssetFetcher
	Synthesizer  core.Synthesizer
	Publisher    core.Publisher
	Entries      []core.ScriptEntry
	OutputDir    string
	Out          io.Writer
	AllowPartial bool
}

// Summary describes a finished run.
type Summary struct {
	Results       []core.EntryResult
	Report        []report.Item
	Downloaded    bool
	Produced      int
	Failed        int
	Published     int
	PublishFailed int
}

// FailedEntries returns the results that produced no audio.
func (s *Summary) FailedEntries() []core.EntryResult {
	failed := make([]core.EntryResult, 0, s.Failed)

	for _, result := range s.Results {
		if !result.OK() {
			failed = append(failed, result)
		}
	}

	return failed
}

// Runner executes the generation stages strictly in sequence.
type Runner struct {
	log  *logger.Logger
	out  io.Writer
	opts Options
}

// NewRunner validates opts and creates a Runner. A nil Out discards console output.
func NewRunner(opts Options, log *logger.Logger) (*Runner, error) {
	if opts.Checker == nil {
		return nil, ErrCheckerNil
	}

	if opts.Fetcher == nil {
		return nil, ErrFetcherNil
	}

	if opts.Synthesizer == nil {
		return nil, ErrSynthesizerNil
	}

	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	return &Runner{
		log:  log,
		out:  out,
		opts: opts,
	}, nil
}

// Run performs the whole pass. Fatal stage errors (tool missing, voice
// unavailable) return before any later stage starts. Per-entry failures
// are collected and turned into ErrEntriesFailed unless AllowPartial is set;
// the summary is returned in that case too.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	checkErr := r.opts.Checker.Check(ctx)
	if checkErr != nil {
		r.log.Error("Tool check failed: %v", checkErr)

		return nil, checkErr
	}

	asset, downloaded, fetchErr := r.opts.Fetcher.Ensure(ctx)
	if fetchErr != nil {
		r.log.Error("Voice asset unavailable: %v", fetchErr)

		return nil, fetchErr
	}

	summary := &Summary{
		Results:    make([]core.EntryResult, 0, len(r.opts.Entries)),
		Downloaded: downloaded,
	}

	r.printf("\nOutput directory: %s\n", r.opts.OutputDir)
	r.printf("Number of scripts to generate: %d\n", len(r.opts.Entries))

	for _, entry := range r.opts.Entries {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return summary, fmt.Errorf("generation interrupted: %w", ctxErr)
		}

		result := r.synthesizeEntry(ctx, entry, asset)
		summary.Results = append(summary.Results, result)

		if result.OK() {
			summary.Produced++
		} else {
			summary.Failed++
		}
	}

	r.printf("\n%s\n", strings.Repeat("=", separatorWidth))
	r.printf("✓ Audio generation complete!\n")
	r.printf("%s\n\n", strings.Repeat("=", separatorWidth))

	reportErr := r.printReport(summary)
	if reportErr != nil {
		r.log.Warn("Failed to print report: %v", reportErr)
	}

	r.publish(ctx, summary)

	r.log.Info("Run finished: %d produced, %d failed", summary.Produced, summary.Failed)

	if summary.Failed > 0 && !r.opts.AllowPartial {
		return summary, fmt.Errorf("%w: %d of %d", ErrEntriesFailed, summary.Failed, len(r.opts.Entries))
	}

	return summary, nil
}

func (r *Runner) synthesizeEntry(
	ctx context.Context,
	entry core.ScriptEntry,
	asset core.VoiceAsset,
) core.EntryResult {
	r.printf("\n%s\n", strings.Repeat("=", separatorWidth))
	r.printf("Generating: %s\n", entry.Filename)
	r.printf("Voice: %s\n", asset.Name)
	r.printf("%s\n", strings.Repeat("=", separatorWidth))

	result, err := r.opts.Synthesizer.Synthesize(ctx, entry, asset)
	if err != nil {
		if result.Err == nil {
			result.Err = err
		}

		result.Entry = entry
		r.log.Error("Entry %s failed: %v", entry.ID, err)
		r.printf("✗ Error generating %s: %v\n", entry.Filename, err)

		return result
	}

	r.log.Info("Entry %s produced %s (%d bytes)", entry.ID, result.OutputPath, result.Size)
	r.printf("✓ Generated: %s\n", result.OutputPath)
	r.printf("  File size: %s\n", ttsutils.FormatMegabytes(result.Size))

	return result
}

func (r *Runner) printReport(summary *Summary) error {
	items, err := report.Scan(r.opts.OutputDir, r.opts.Entries)
	if err != nil {
		return err
	}

	summary.Report = items

	return report.Print(r.out, items)
}

// publish ships every produced file. Failures are logged and counted only.
func (r *Runner) publish(ctx context.Context, summary *Summary) {
	if r.opts.Publisher == nil {
		return
	}

	for index, result := range summary.Results {
		if !result.OK() {
			continue
		}

		err := r.opts.Publisher.Publish(ctx, result, index, len(summary.Results))
		if err != nil {
			summary.PublishFailed++
			r.log.Error("Failed to publish %s: %v", result.Entry.Filename, err)

			continue
		}

		summary.Published++
	}

	r.printf("\nPublished %d file(s), %d failed\n", summary.Published, summary.PublishFailed)
}

func (r *Runner) printf(format string, args ...any) {
	_, err := fmt.Fprintf(r.out, format, args...)
	if err != nil {
		r.log.Warn("Failed to write console output: %v", err)
	}
}
