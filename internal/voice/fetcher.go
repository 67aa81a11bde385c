// Package voice makes sure the Piper voice model pair is present locally.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/tom3k5/soulsync-audio/internal/core"
	"github.com/tom3k5/soulsync-audio/internal/ttsutils"
)

// File name suffixes of a Piper voice.
const (
	modelSuffix  = ".onnx"
	configSuffix = ".onnx.json"
	partSuffix   = ".part"
)

// HTTP headers.
const (
	headerUserAgent = "User-Agent"
	headerAccept    = "Accept"
	userAgent       = "soulsync-audio-generator"
	acceptBinary    = "application/octet-stream,*/*"
	filePermissions = 0o600
)

// Log messages.
const (
	logCacheHit       = "Voice model already downloaded: %s"
	logDownloading    = "Downloading voice model: %s"
	logDownloadingURL = "Downloading %s"
	logDownloaded     = "Downloaded %s (%s)"
	logRemovePartial  = "Failed to remove partial download '%s': %v"
)

var (
	// ErrDownloadFailed indicates a voice file could not be fetched or written.
	ErrDownloadFailed = errors.New("voice download failed")
	// ErrVoiceNameEmpty indicates the fetcher was built without a voice name.
	ErrVoiceNameEmpty = errors.New("voice name cannot be empty")
	// ErrBaseURLEmpty indicates the fetcher was built without a download location.
	ErrBaseURLEmpty = errors.New("voice base url cannot be empty")
	// ErrVoicesDirEmpty indicates the fetcher was built without a target directory.
	ErrVoicesDirEmpty = errors.New("voices dir cannot be empty")
)

// Options configures a Fetcher.
type Options struct {
	Name    string
	BaseURL string
	Dir     string
	// Timeout bounds each download request; zero means no timeout.
	Timeout time.Duration
}

// Fetcher downloads a voice model and its configuration when they are missing.
type Fetcher struct {
	httpClient *http.Client
	log        *logger.Logger
	name       string
	baseURL    string
	dir        string
}

// NewFetcher creates a Fetcher for one voice.
func NewFetcher(opts Options, log *logger.Logger) (*Fetcher, error) {
	if opts.Name == "" {
		return nil, ErrVoiceNameEmpty
	}

	if opts.BaseURL == "" {
		return nil, ErrBaseURLEmpty
	}

	if opts.Dir == "" {
		return nil, ErrVoicesDirEmpty
	}

	return &Fetcher{
		httpClient: &http.Client{Timeout: opts.Timeout},
		log:        log,
		name:       opts.Name,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		dir:        opts.Dir,
	}, nil
}

// Asset returns the local paths of the voice files, whether or not they exist.
func (f *Fetcher) Asset() core.VoiceAsset {
	return core.VoiceAsset{
		Name:       f.name,
		ModelPath:  filepath.Join(f.dir, f.name+modelSuffix),
		ConfigPath: filepath.Join(f.dir, f.name+configSuffix),
	}
}

// ModelURL returns the remote location of the model weights.
func (f *Fetcher) ModelURL() string {
	return f.baseURL + "/" + f.name + modelSuffix
}

// ConfigURL returns the remote location of the model configuration.
func (f *Fetcher) ConfigURL() string {
	return f.baseURL + "/" + f.name + configSuffix
}

// Dir returns the directory voice files are stored in.
func (f *Fetcher) Dir() string {
	return f.dir
}

// Ensure returns the local voice asset, downloading both files unless both
// already exist. The second return value reports whether a download happened.
func (f *Fetcher) Ensure(ctx context.Context) (core.VoiceAsset, bool, error) {
	asset := f.Asset()

	if ttsutils.FileExists(asset.ModelPath) && ttsutils.FileExists(asset.ConfigPath) {
		f.log.Info(logCacheHit, f.name)

		return asset, false, nil
	}

	f.log.Info(logDownloading, f.name)

	dirErr := ttsutils.EnsureDir(f.dir)
	if dirErr != nil {
		return core.VoiceAsset{}, false, fmt.Errorf("%w: %w", ErrDownloadFailed, dirErr)
	}

	modelErr := f.download(ctx, f.ModelURL(), asset.ModelPath)
	if modelErr != nil {
		return core.VoiceAsset{}, false, modelErr
	}

	configErr := f.download(ctx, f.ConfigURL(), asset.ConfigPath)
	if configErr != nil {
		return core.VoiceAsset{}, false, configErr
	}

	return asset, true, nil
}

// download fetches url into a sibling part file and renames it over path
// once complete. A failed download leaves path as it was.
func (f *Fetcher) download(ctx context.Context, url, path string) error {
	f.log.Info(logDownloadingURL, url)

	partPath := path + partSuffix

	written, err := f.fetchTo(ctx, url, partPath)
	if err == nil {
		err = os.Rename(partPath, path)
	}

	if err != nil {
		removeErr := os.Remove(partPath)
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			f.log.Warn(logRemovePartial, partPath, removeErr)
		}

		return fmt.Errorf("%w: %s: %w", ErrDownloadFailed, url, err)
	}

	f.log.Info(logDownloaded, filepath.Base(path), ttsutils.FormatFileSize(written))

	return nil
}

func (f *Fetcher) fetchTo(ctx context.Context, url, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerUserAgent, userAgent)
	req.Header.Set(headerAccept, acceptBinary)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePermissions)
	if err != nil {
		return 0, fmt.Errorf("failed to create '%s': %w", path, err)
	}

	written, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()

	if copyErr != nil {
		return written, fmt.Errorf("failed to write '%s': %w", path, copyErr)
	}

	if closeErr != nil {
		return written, fmt.Errorf("failed to close '%s': %w", path, closeErr)
	}

	return written, nil
}
