// ABOUTME: Audio source abstraction for the demo producer
// ABOUTME: Picks a test tone, MP3 or FLAC decoder from a path
package source

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Source yields interleaved stereo samples left-justified in 32 bits, so a
// sample's top 16 bits are its S16 value.
type Source interface {
	// Read fills samples and returns how many were written
	Read(samples []int32) (int, error)

	// SampleRate returns the rate the samples are produced at
	SampleRate() uint32

	// Channels returns the number of interleaved channels
	Channels() int

	// Title names the source for display
	Title() string

	Close() error
}

// New opens path as an audio file, or a tone of freq Hz at rate when path is
// empty. File sources are resampled to rate when their native rate differs.
func New(path string, freq float64, rate uint32) (Source, error) {
	if path == "" {
		return NewTone(freq, rate), nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", path)
	}

	var src Source
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		src, err = NewMP3(path)
	case ".flac":
		src, err = NewFLAC(path)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac)", ext)
	}
	if err != nil {
		return nil, err
	}

	if src.SampleRate() != rate {
		log.Printf("Resampling %s from %d Hz to %d Hz", src.Title(), src.SampleRate(), rate)
		return Resample(src, rate), nil
	}
	return src, nil
}

func titleFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
