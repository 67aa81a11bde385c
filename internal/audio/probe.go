// Package audio reads the headers of generated audio files for reporting.
//
// Piper always writes RIFF/WAVE data regardless of the output file name, so
// the format is sniffed from content rather than taken from the extension.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// Format represents supported audio formats.
type Format string

// Supported formats.
const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
)

// go-mp3 always decodes to 16-bit stereo.
const (
	mp3Channels       = 2
	mp3BytesPerSample = 2
)

const sniffLength = 12

var (
	// ErrUnknownFormat indicates content that is neither WAV nor MP3.
	ErrUnknownFormat = errors.New("unrecognized audio format")
	// ErrInvalidHeader indicates a recognized container with an unreadable header.
	ErrInvalidHeader = errors.New("invalid audio header")
)

// Info describes a generated audio file.
type Info struct {
	Format     Format
	Duration   time.Duration
	SampleRate int
	Channels   int
	FileSize   int64
}

// Probe opens path and reads its audio header.
func Probe(path string) (Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open audio file '%s': %w", path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("failed to stat audio file '%s': %w", path, err)
	}

	info, err := ProbeReader(file)
	if err != nil {
		return Info{}, fmt.Errorf("failed to probe '%s': %w", path, err)
	}

	info.FileSize = stat.Size()

	return info, nil
}

// ProbeReader reads an audio header from r.
func ProbeReader(r io.ReadSeeker) (Info, error) {
	header := make([]byte, sniffLength)

	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Info{}, fmt.Errorf("%w: %w", ErrUnknownFormat, err)
	}

	_, seekErr := r.Seek(0, io.SeekStart)
	if seekErr != nil {
		return Info{}, fmt.Errorf("failed to rewind audio: %w", seekErr)
	}

	format, sniffErr := sniff(header[:n])
	if sniffErr != nil {
		return Info{}, sniffErr
	}

	if format == FormatWAV {
		return probeWAV(r)
	}

	return probeMP3(r)
}

func sniff(header []byte) (Format, error) {
	switch {
	case len(header) >= sniffLength &&
		bytes.Equal(header[0:4], []byte("RIFF")) &&
		bytes.Equal(header[8:12], []byte("WAVE")):
		return FormatWAV, nil
	case bytes.HasPrefix(header, []byte("ID3")):
		return FormatMP3, nil
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		return FormatMP3, nil
	default:
		return "", ErrUnknownFormat
	}
}

func probeWAV(r io.ReadSeeker) (Info, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return Info{}, fmt.Errorf("%w: not a valid wav file", ErrInvalidHeader)
	}

	duration, err := decoder.Duration()
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}

	return Info{
		Format:     FormatWAV,
		Duration:   duration,
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
	}, nil
}

func probeMP3(r io.ReadSeeker) (Info, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}

	info := Info{
		Format:     FormatMP3,
		SampleRate: decoder.SampleRate(),
		Channels:   mp3Channels,
	}

	length := decoder.Length()
	if length > 0 && info.SampleRate > 0 {
		samples := length / (mp3Channels * mp3BytesPerSample)
		info.Duration = time.Duration(samples) * time.Second / time.Duration(info.SampleRate)
	}

	return info, nil
}
