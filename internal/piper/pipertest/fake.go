// Package pipertest provides a stand-in Piper executable for tests.
package pipertest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FailMarker makes the fake binary exit nonzero when it appears in its input.
const FailMarker = "FAIL_SYNTHESIS"

// SilentMarker makes the fake binary exit zero without writing any audio.
const SilentMarker = "SILENT_SYNTHESIS"

// ArgsLog is the file, next to the binary, that records each invocation's arguments.
const ArgsLog = "args.log"

const fakeScript = `#!/bin/sh
dir=$(dirname "$0")
if [ "$1" = "--version" ]; then
	echo "1.2.0"
	exit 0
fi
echo "$@" >> "$dir/args.log"
out=""
while [ $# -gt 0 ]; do
	case "$1" in
		--output_file) out="$2"; shift 2 ;;
		*) shift ;;
	esac
done
content=$(cat)
case "$content" in
	*FAIL_SYNTHESIS*) echo "synthesis exploded" >&2; exit 3 ;;
	*SILENT_SYNTHESIS*) exit 0 ;;
esac
printf 'RIFF%s' "$content" > "$out"
`

// Install writes an executable fake piper into a fresh directory and returns its path.
// The fake copies its stdin into the --output_file target.
func Install(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "piper")

	err := os.WriteFile(path, []byte(fakeScript), 0o700) // #nosec G306 -- must be executable
	if err != nil {
		t.Fatalf("Failed to write fake piper: %v", err)
	}

	return path
}

// Invocations returns the recorded argument lines of the fake at binaryPath.
func Invocations(t *testing.T, binaryPath string) []string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(filepath.Dir(binaryPath), ArgsLog))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		t.Fatalf("Failed to read fake piper args: %v", err)
	}

	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}
