// Package registry holds the ordered set of scripts the generator narrates.
package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tom3k5/soulsync-audio/internal/core"
	"github.com/tom3k5/soulsync-audio/internal/ttsutils"
)

//go:embed scripts.toml
var builtinScripts []byte

var (
	// ErrEmptyID indicates an entry without an identifier.
	ErrEmptyID = errors.New("script id cannot be empty")
	// ErrEmptyFilename indicates an entry without an output filename.
	ErrEmptyFilename = errors.New("script filename cannot be empty")
	// ErrInvalidFilename indicates a filename with path separators or reserved characters.
	ErrInvalidFilename = errors.New("script filename must be a bare file name")
	// ErrUnsupportedExtension indicates a filename that is not an audio file.
	ErrUnsupportedExtension = errors.New("script filename must have an audio extension")
	// ErrEmptyText indicates an entry with nothing to narrate.
	ErrEmptyText = errors.New("script text cannot be empty")
	// ErrDuplicateID indicates two entries sharing an identifier.
	ErrDuplicateID = errors.New("duplicate script id")
	// ErrDuplicateFilename indicates two entries writing the same output file.
	ErrDuplicateFilename = errors.New("duplicate script filename")
	// ErrUnknownScript indicates a lookup for an id that is not registered.
	ErrUnknownScript = errors.New("unknown script id")
)

// scriptFile is the TOML layout of a script collection.
type scriptFile struct {
	Scripts []core.ScriptEntry `toml:"scripts"`
}

// Registry is an immutable, ordered list of script entries.
type Registry struct {
	entries []core.ScriptEntry
}

// New validates entries and builds a registry preserving their order.
func New(entries ...core.ScriptEntry) (*Registry, error) {
	ids := make(map[string]struct{}, len(entries))
	filenames := make(map[string]struct{}, len(entries))

	for _, entry := range entries {
		validationErr := validateEntry(entry)
		if validationErr != nil {
			return nil, validationErr
		}

		if _, exists := ids[entry.ID]; exists {
			return nil, fmt.Errorf("%w: '%s'", ErrDuplicateID, entry.ID)
		}

		if _, exists := filenames[entry.Filename]; exists {
			return nil, fmt.Errorf("%w: '%s'", ErrDuplicateFilename, entry.Filename)
		}

		ids[entry.ID] = struct{}{}
		filenames[entry.Filename] = struct{}{}
	}

	copied := make([]core.ScriptEntry, len(entries))
	copy(copied, entries)

	return &Registry{entries: copied}, nil
}

// Builtin returns the registry of scripts shipped with the binary.
func Builtin() (*Registry, error) {
	entries, err := Decode(builtinScripts)
	if err != nil {
		return nil, fmt.Errorf("failed to decode built-in scripts: %w", err)
	}

	return New(entries...)
}

// LoadFile reads script entries from a TOML file with a [[scripts]] array.
func LoadFile(path string) ([]core.ScriptEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scripts file '%s': %w", path, err)
	}

	entries, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode scripts file '%s': %w", path, err)
	}

	return entries, nil
}

// Decode parses a TOML script collection.
func Decode(data []byte) ([]core.ScriptEntry, error) {
	var file scriptFile

	err := toml.Unmarshal(data, &file)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal scripts: %w", err)
	}

	for i := range file.Scripts {
		file.Scripts[i].Text = strings.TrimSpace(file.Scripts[i].Text)
	}

	return file.Scripts, nil
}

// Entries returns a copy of the entries in registry order.
func (r *Registry) Entries() []core.ScriptEntry {
	copied := make([]core.ScriptEntry, len(r.entries))
	copy(copied, r.entries)

	return copied
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Lookup finds an entry by id.
func (r *Registry) Lookup(id string) (core.ScriptEntry, bool) {
	for _, entry := range r.entries {
		if entry.ID == id {
			return entry, true
		}
	}

	return core.ScriptEntry{}, false
}

// Append returns a new registry with extra entries added after the existing ones.
func (r *Registry) Append(entries ...core.ScriptEntry) (*Registry, error) {
	combined := make([]core.ScriptEntry, 0, len(r.entries)+len(entries))
	combined = append(combined, r.entries...)
	combined = append(combined, entries...)

	return New(combined...)
}

// Filter returns a registry restricted to ids, keeping registry order.
// An empty ids list returns the registry unchanged.
func (r *Registry) Filter(ids []string) (*Registry, error) {
	if len(ids) == 0 {
		return r, nil
	}

	wanted := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if _, found := r.Lookup(id); !found {
			return nil, fmt.Errorf("%w: '%s'", ErrUnknownScript, id)
		}

		wanted[id] = struct{}{}
	}

	selected := make([]core.ScriptEntry, 0, len(wanted))

	for _, entry := range r.entries {
		if _, ok := wanted[entry.ID]; ok {
			selected = append(selected, entry)
		}
	}

	return &Registry{entries: selected}, nil
}

func validateEntry(entry core.ScriptEntry) error {
	if entry.ID == "" {
		return ErrEmptyID
	}

	if entry.Filename == "" {
		return fmt.Errorf("%w: script '%s'", ErrEmptyFilename, entry.ID)
	}

	if !ttsutils.IsBareFilename(entry.Filename) {
		return fmt.Errorf("%w: got '%s'", ErrInvalidFilename, entry.Filename)
	}

	if !ttsutils.IsValidAudioFile(entry.Filename) {
		return fmt.Errorf("%w: got '%s'", ErrUnsupportedExtension, entry.Filename)
	}

	if strings.TrimSpace(entry.Text) == "" {
		return fmt.Errorf("%w: script '%s'", ErrEmptyText, entry.ID)
	}

	return nil
}
