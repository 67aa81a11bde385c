// Package piper drives the Piper text-to-speech command line tool.
package piper

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/book-expert/logger"
)

const versionFlag = "--version"

// ErrToolNotFound indicates the synthesis executable is not installed or not on PATH.
var ErrToolNotFound = errors.New("piper executable not found")

// InstallGuidance is printed when the tool is missing.
const InstallGuidance = `
    Piper TTS Not Found

    Please install Piper TTS:

    Option 1 - Using pip:
        pip install piper-tts

    Option 2 - Download binary:
        Visit: https://github.com/rhasspy/piper/releases
        Download the appropriate binary for your system

    Option 3 - Using conda:
        conda install -c conda-forge piper-tts
`

// Checker verifies the Piper executable can be started.
type Checker struct {
	log    *logger.Logger
	binary string
}

// NewChecker creates a Checker for binary, a name on PATH or a path.
func NewChecker(binary string, log *logger.Logger) *Checker {
	return &Checker{
		log:    log,
		binary: binary,
	}
}

// Check resolves the binary and runs it with --version. Any build that can
// be started counts as installed, even if it rejects the flag.
func (c *Checker) Check(ctx context.Context) error {
	path, err := exec.LookPath(c.binary)
	if err != nil {
		return fmt.Errorf("%w: '%s': %w", ErrToolNotFound, c.binary, err)
	}

	// #nosec G204 -- binary comes from local configuration
	cmd := exec.CommandContext(ctx, path, versionFlag)

	output, runErr := cmd.CombinedOutput()
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			c.log.Warn("Piper at %s exited with %d for %s", path, exitErr.ExitCode(), versionFlag)

			return nil
		}

		return fmt.Errorf("%w: '%s': %w", ErrToolNotFound, path, runErr)
	}

	c.log.Info("Found piper at %s (version %s)", path, strings.TrimSpace(string(output)))

	return nil
}
