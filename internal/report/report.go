// Package report lists the audio files a run left in the output directory.
package report

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tom3k5/soulsync-audio/internal/audio"
	"github.com/tom3k5/soulsync-audio/internal/core"
	"github.com/tom3k5/soulsync-audio/internal/ttsutils"
)

const (
	headerGenerated = "Generated files:"
	lineFormat      = "  • %s (%s)\n"
	lineFormatAudio = "  • %s (%s, %s)\n"
	noFilesMessage  = "  (none)"
)

// Item is one produced file.
type Item struct {
	Name     string
	Size     int64
	Duration time.Duration
}

// Scan returns the files in outputDir whose names match an entry's filename,
// sorted by name. A missing output directory yields no items.
func Scan(outputDir string, entries []core.ScriptEntry) ([]Item, error) {
	dirEntries, err := os.ReadDir(outputDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read output directory '%s': %w", outputDir, err)
	}

	wanted := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		wanted[entry.Filename] = struct{}{}
	}

	items := make([]Item, 0, len(entries))

	for _, dirEntry := range dirEntries {
		if _, ok := wanted[dirEntry.Name()]; !ok || !dirEntry.Type().IsRegular() {
			continue
		}

		info, infoErr := dirEntry.Info()
		if infoErr != nil {
			return nil, fmt.Errorf("failed to stat '%s': %w", dirEntry.Name(), infoErr)
		}

		item := Item{Name: dirEntry.Name(), Size: info.Size()}

		probed, probeErr := audio.Probe(filepath.Join(outputDir, dirEntry.Name()))
		if probeErr == nil {
			item.Duration = probed.Duration
		}

		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	return items, nil
}

// Print writes the items as a console listing.
func Print(w io.Writer, items []Item) error {
	_, err := fmt.Fprintln(w, headerGenerated)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if len(items) == 0 {
		_, err = fmt.Fprintln(w, noFilesMessage)
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

		return nil
	}

	for _, item := range items {
		size := ttsutils.FormatMegabytes(item.Size)

		if item.Duration > 0 {
			duration := ttsutils.FormatDuration(item.Duration.Seconds())
			_, err = fmt.Fprintf(w, lineFormatAudio, item.Name, size, duration)
		} else {
			_, err = fmt.Fprintf(w, lineFormat, item.Name, size)
		}

		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	return nil
}
