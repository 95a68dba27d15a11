// ABOUTME: WAV file sink for the simulated I2S stream
// ABOUTME: Records exactly what the state machine shifted out using go-audio/wav
package output

import (
	"fmt"
	"log"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
)

// WAV records the stream to a PCM WAV file
type WAV struct {
	path string

	mu      sync.Mutex
	file    *os.File
	enc     *wav.Encoder
	format  audio.Format
	buf     *goaudio.IntBuffer
	written int
}

// NewWAV creates a sink that writes to path on Open
func NewWAV(path string) *WAV {
	return &WAV{path: path}
}

func (w *WAV) Open(format audio.Format) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.enc != nil {
		return fmt.Errorf("wav sink already open")
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	bits := format.PCM.Bits()
	w.file = f
	w.format = format
	w.enc = wav.NewEncoder(f, int(format.SampleRate), bits, format.Channels, 1)
	w.buf = &goaudio.IntBuffer{
		Format:         &goaudio.Format{SampleRate: int(format.SampleRate), NumChannels: format.Channels},
		SourceBitDepth: bits,
	}

	log.Printf("Recording %v to %s", format, w.path)
	return nil
}

func (w *WAV) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.enc == nil {
		return 0, fmt.Errorf("output not initialized")
	}

	pcm := w.format.PCM
	shift := 32 - pcm.Bits()
	n := len(p) / pcm.BytesPerSample()
	if cap(w.buf.Data) < n {
		w.buf.Data = make([]int, n)
	}
	w.buf.Data = w.buf.Data[:n]
	for i := range w.buf.Data {
		w.buf.Data[i] = int(audio.ReadSample(p, pcm, i) >> shift)
	}

	if err := w.enc.Write(w.buf); err != nil {
		return 0, fmt.Errorf("failed to write to WAV encoder: %w", err)
	}
	w.written += n
	return len(p), nil
}

// Samples returns how many channel samples have been recorded
func (w *WAV) Samples() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

func (w *WAV) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.enc == nil {
		return nil
	}
	err := w.enc.Close()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	w.enc = nil
	w.file = nil
	if err != nil {
		return fmt.Errorf("failed to finalize wav file: %w", err)
	}
	log.Printf("Recorded %d samples to %s", w.written, w.path)
	return nil
}
