package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/tom3k5/soulsync-audio/internal/core"
	"github.com/tom3k5/soulsync-audio/internal/pipeline"
	"github.com/tom3k5/soulsync-audio/internal/piper"
	"github.com/tom3k5/soulsync-audio/internal/report"
	"github.com/tom3k5/soulsync-audio/internal/voice"
)

const banner = `
╔══════════════════════════════════════════════════════════════════╗
║         SoulSync Meditation Audio Generator (Offline)            ║
║         Using Piper Neural TTS                                   ║
╚══════════════════════════════════════════════════════════════════╝
`

// Flag names.
const (
	flagConfig       = "config"
	flagOnly         = "only"
	flagScripts      = "scripts"
	flagAllowPartial = "allow-partial"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

// generateOptions are the flags of the generate pass.
type generateOptions struct {
	scriptsPath  string
	only         []string
	allowPartial bool
}

func newRootCommand() *cobra.Command {
	rootOpts := &rootOptions{}
	genOpts := &generateOptions{}

	cmd := &cobra.Command{
		Use:           "audio-generator",
		Short:         "Generate meditation audio offline with Piper TTS",
		Long:          "Checks for Piper, downloads the voice model if needed and narrates every registered script.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, rootOpts, genOpts)
		},
	}

	cmd.PersistentFlags().StringVar(&rootOpts.configPath, flagConfig, "", "path to a TOML configuration file")
	addGenerateFlags(cmd, genOpts)

	cmd.AddCommand(
		newGenerateCommand(rootOpts),
		newCheckCommand(rootOpts),
		newFetchVoiceCommand(rootOpts),
		newReportCommand(rootOpts),
		newListCommand(rootOpts),
	)

	return cmd
}

func addGenerateFlags(cmd *cobra.Command, opts *generateOptions) {
	cmd.Flags().StringSliceVar(&opts.only, flagOnly, nil, "comma separated script ids to generate")
	cmd.Flags().StringVar(&opts.scriptsPath, flagScripts, "", "TOML file with extra [[scripts]] entries")
	cmd.Flags().BoolVar(&opts.allowPartial, flagAllowPartial, false, "exit zero even when some scripts fail")
}

func newGenerateCommand(rootOpts *rootOptions) *cobra.Command {
	genOpts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the full pipeline (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, rootOpts, genOpts)
		},
	}

	addGenerateFlags(cmd, genOpts)

	return cmd
}

func newCheckCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the Piper executable is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := newApp(rootOpts.configPath)
			if err != nil {
				return err
			}
			defer application.Close()

			out := cmd.OutOrStdout()

			checkErr := application.checker().Check(cmd.Context())
			if checkErr != nil {
				explainFailure(out, checkErr, nil)

				return checkErr
			}

			fmt.Fprintf(out, "✓ Piper is available: %s\n", application.cfg.Piper.Binary)

			return nil
		},
	}
}

func newFetchVoiceCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-voice",
		Short: "Download the voice model if it is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := newApp(rootOpts.configPath)
			if err != nil {
				return err
			}
			defer application.Close()

			fetcher, err := application.fetcher()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			asset, downloaded, ensureErr := fetcher.Ensure(cmd.Context())
			if ensureErr != nil {
				explainFailure(out, ensureErr, fetcher)

				return ensureErr
			}

			if downloaded {
				fmt.Fprintf(out, "✓ Downloaded voice model: %s\n", asset.ModelPath)
			} else {
				fmt.Fprintf(out, "✓ Voice model already downloaded: %s\n", asset.Name)
			}

			return nil
		},
	}
}

func newReportCommand(rootOpts *rootOptions) *cobra.Command {
	var scriptsPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "List generated files with their sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := newApp(rootOpts.configPath)
			if err != nil {
				return err
			}
			defer application.Close()

			reg, err := application.registry(scriptsPath, nil)
			if err != nil {
				return err
			}

			items, err := report.Scan(application.cfg.Paths.OutputDir, reg.Entries())
			if err != nil {
				return err
			}

			return report.Print(cmd.OutOrStdout(), items)
		},
	}

	cmd.Flags().StringVar(&scriptsPath, flagScripts, "", "TOML file with extra [[scripts]] entries")

	return cmd
}

func newListCommand(rootOpts *rootOptions) *cobra.Command {
	var scriptsPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the registered scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := newApp(rootOpts.configPath)
			if err != nil {
				return err
			}
			defer application.Close()

			reg, err := application.registry(scriptsPath, nil)
			if err != nil {
				return err
			}

			printEntries(cmd.OutOrStdout(), reg.Entries())

			return nil
		},
	}

	cmd.Flags().StringVar(&scriptsPath, flagScripts, "", "TOML file with extra [[scripts]] entries")

	return cmd
}

func runGenerate(cmd *cobra.Command, rootOpts *rootOptions, genOpts *generateOptions) error {
	application, err := newApp(rootOpts.configPath)
	if err != nil {
		return err
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	fmt.Fprint(out, banner)

	reg, err := application.registry(genOpts.scriptsPath, genOpts.only)
	if err != nil {
		return err
	}

	fetcher, err := application.fetcher()
	if err != nil {
		return err
	}

	synth, err := application.synthesizer()
	if err != nil {
		return err
	}

	pub, closePublisher, err := application.publisher()
	if err != nil {
		return err
	}
	defer closePublisher()

	opts := pipeline.Options{
		Checker:      application.checker(),
		Fetcher:      fetcher,
		Synthesizer:  synth,
		Publisher:    pub,
		Entries:      reg.Entries(),
		OutputDir:    application.cfg.Paths.OutputDir,
		Out:          out,
		AllowPartial: genOpts.allowPartial || application.cfg.Run.AllowPartial,
	}

	runner, err := pipeline.NewRunner(opts, application.log)
	if err != nil {
		return err
	}

	application.log.System("Generating %d script(s) into %s", reg.Len(), application.cfg.Paths.OutputDir)

	summary, runErr := runner.Run(cmd.Context())
	if runErr != nil {
		explainFailure(out, runErr, fetcher)

		return runErr
	}

	application.log.System("Generated %d of %d script(s)", summary.Produced, len(summary.Results))

	return nil
}

// explainFailure prints the manual remedy for the fatal error classes.
func explainFailure(out io.Writer, err error, fetcher *voice.Fetcher) {
	switch {
	case errors.Is(err, piper.ErrToolNotFound):
		fmt.Fprint(out, piper.InstallGuidance)
	case errors.Is(err, voice.ErrDownloadFailed) && fetcher != nil:
		fmt.Fprintf(out, "  ✗ Error downloading voice model: %v\n", err)
		fmt.Fprintln(out, "\n  Please download manually from:")
		fmt.Fprintf(out, "    %s\n", fetcher.ModelURL())
		fmt.Fprintf(out, "    %s\n", fetcher.ConfigURL())
		fmt.Fprintf(out, "  And place in: %s\n", fetcher.Dir())
	case errors.Is(err, pipeline.ErrEntriesFailed):
		fmt.Fprintln(out, "\nSome scripts failed; rerun with --allow-partial to accept partial output.")
	}
}

func printEntries(out io.Writer, entries []core.ScriptEntry) {
	fmt.Fprintf(out, "%-24s %-28s %6s  %s\n", "ID", "FILENAME", "CHARS", "TITLE")

	for _, entry := range entries {
		fmt.Fprintf(out, "%-24s %-28s %6d  %s\n",
			entry.ID, entry.Filename, utf8.RuneCountInString(entry.Text), strings.TrimSpace(entry.Title))
	}
}
