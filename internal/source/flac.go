// ABOUTME: FLAC file source
// ABOUTME: Decodes with mewkiz/flac, widens mono to stereo and loops at end of file
package source

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mewkiz/flac"
)

// FLAC reads from a FLAC file
type FLAC struct {
	file     *os.File
	stream   *flac.Stream
	rate     uint32
	channels int
	bits     int
	title    string

	// pending holds decoded samples not yet returned
	pending []int32
}

// NewFLAC opens a FLAC file
func NewFLAC(path string) (*FLAC, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	s := &FLAC{
		file:     f,
		stream:   stream,
		rate:     info.SampleRate,
		channels: int(info.NChannels),
		bits:     int(info.BitsPerSample),
		title:    titleFromPath(path),
	}
	if s.channels > 2 {
		f.Close()
		return nil, fmt.Errorf("unsupported FLAC channel count %d", s.channels)
	}

	log.Printf("Loaded FLAC: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		s.title, s.rate, s.channels, s.bits)
	return s, nil
}

func (s *FLAC) Read(samples []int32) (int, error) {
	n := 0
	for n < len(samples) {
		if len(s.pending) > 0 {
			c := copy(samples[n:], s.pending)
			s.pending = s.pending[c:]
			n += c
			continue
		}

		frame, err := s.stream.ParseNext()
		if errors.Is(err, io.EOF) {
			if err := s.rewind(); err != nil {
				return n, err
			}
			continue
		}
		if err != nil {
			return n, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}

		channels := make([][]int32, len(frame.Subframes))
		for i, sub := range frame.Subframes {
			channels[i] = sub.Samples
		}
		s.pending = interleave(s.pending[:0], channels, int(frame.BlockSize), s.bits)
	}
	return n, nil
}

func (s *FLAC) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	stream, err := flac.New(s.file)
	if err != nil {
		return fmt.Errorf("failed to create new stream: %w", err)
	}
	s.stream = stream
	return nil
}

// interleave appends n stereo frames from per-channel samples of the given
// bit depth, left-justified in 32 bits. A single channel feeds both sides.
func interleave(dst []int32, channels [][]int32, n, bits int) []int32 {
	shift := 32 - bits
	right := len(channels) - 1
	for i := 0; i < n; i++ {
		dst = append(dst, channels[0][i]<<shift, channels[right][i]<<shift)
	}
	return dst
}

func (s *FLAC) SampleRate() uint32 { return s.rate }
func (s *FLAC) Channels() int      { return 2 }
func (s *FLAC) Title() string      { return s.title }
func (s *FLAC) Close() error       { return s.file.Close() }
