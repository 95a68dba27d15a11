// ABOUTME: MP3 file source
// ABOUTME: Decodes with go-mp3 and loops at end of file
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// MP3 reads from an MP3 file. The decoder always produces 16-bit stereo.
type MP3 struct {
	file    *os.File
	decoder *mp3.Decoder
	rate    uint32
	title   string
	buf     []byte
}

// NewMP3 opens an MP3 file
func NewMP3(path string) (*MP3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	title := titleFromPath(path)
	log.Printf("Loaded MP3: %s (sample rate: %d Hz)", title, decoder.SampleRate())

	return &MP3{
		file:    f,
		decoder: decoder,
		rate:    uint32(decoder.SampleRate()),
		title:   title,
	}, nil
}

func (s *MP3) Read(samples []int32) (int, error) {
	need := len(samples) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	n, err := io.ReadFull(s.decoder, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, err
	}

	count := n / 2
	for i := 0; i < count; i++ {
		samples[i] = int32(int16(binary.LittleEndian.Uint16(buf[i*2:]))) << 16
	}

	if err != nil {
		// loop the file
		if _, seekErr := s.file.Seek(0, io.SeekStart); seekErr != nil {
			return count, fmt.Errorf("failed to seek to start: %w", seekErr)
		}
		decoder, decErr := mp3.NewDecoder(s.file)
		if decErr != nil {
			return count, fmt.Errorf("failed to create new decoder: %w", decErr)
		}
		s.decoder = decoder
	}
	return count, nil
}

func (s *MP3) SampleRate() uint32 { return s.rate }
func (s *MP3) Channels() int      { return 2 }
func (s *MP3) Title() string      { return s.title }
func (s *MP3) Close() error       { return s.file.Close() }
