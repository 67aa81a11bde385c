// Package core defines the shared types and interfaces of the audio generator.
package core

import "context"

// ScriptEntry is one unit of work: a script to narrate into one audio file.
type ScriptEntry struct {
	ID       string `toml:"id"`
	Filename string `toml:"filename"`
	Title    string `toml:"title"`
	Text     string `toml:"text"`
}

// VoiceAsset is the local model/config file pair of a voice.
type VoiceAsset struct {
	Name       string
	ModelPath  string
	ConfigPath string
}

// Tuning holds the fixed synthesis parameters passed to the tool.
type Tuning struct {
	// LengthScale above 1.0 slows speech down.
	LengthScale float64
	// SentenceSilence is the pause between sentences, in seconds.
	SentenceSilence float64
}

// EntryResult is the outcome of synthesizing one registry entry.
type EntryResult struct {
	Entry      ScriptEntry
	OutputPath string
	Size       int64
	Err        error
}

// OK reports whether the entry produced audio.
func (r EntryResult) OK() bool {
	return r.Err == nil
}

// ToolChecker verifies the synthesis executable can be run.
type ToolChecker interface {
	Check(ctx context.Context) error
}

// AssetFetcher makes sure the voice asset is present locally.
// downloaded is false on a cache hit.
type AssetFetcher interface {
	Ensure(ctx context.Context) (asset VoiceAsset, downloaded bool, err error)
}

// Synthesizer turns one entry into an audio file.
type Synthesizer interface {
	Synthesize(ctx context.Context, entry ScriptEntry, asset VoiceAsset) (EntryResult, error)
}

// Publisher ships a produced audio file somewhere downstream.
type Publisher interface {
	Publish(ctx context.Context, result EntryResult, index, total int) error
}

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// FileStore is an ObjectStore that can stream a local file with a content type.
type FileStore interface {
	ObjectStore
	UploadFile(ctx context.Context, key, path, contentType string) error
}
