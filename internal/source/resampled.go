// ABOUTME: Rate-converting wrapper around a Source
// ABOUTME: Pulls native-rate samples and serves them at the producer pool's rate
package source

import (
	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio/resample"
)

type resampled struct {
	Source
	rate    uint32
	r       *resample.Resampler
	in      []int32
	out     []int32
	pending []int32
}

// Resample wraps src so it reads at rate
func Resample(src Source, rate uint32) Source {
	return &resampled{
		Source: src,
		rate:   rate,
		r:      resample.New(src.SampleRate(), rate, src.Channels()),
	}
}

func (s *resampled) SampleRate() uint32 { return s.rate }

func (s *resampled) Read(samples []int32) (int, error) {
	ch := s.Channels()
	n := 0
	for n < len(samples) {
		if len(s.pending) > 0 {
			c := copy(samples[n:], s.pending)
			s.pending = s.pending[c:]
			n += c
			continue
		}

		want := max(s.r.InputSamplesNeeded(len(samples)-n), 2*ch)
		want -= want % ch
		if cap(s.in) < want {
			s.in = make([]int32, want)
		}
		got, err := s.Source.Read(s.in[:want])
		if got == 0 {
			return n, err
		}

		size := s.r.MaxOutputSamples(got)
		if cap(s.out) < size {
			s.out = make([]int32, size)
		}
		s.pending = s.out[:s.r.Resample(s.in[:got], s.out[:size])]
		if err != nil {
			c := copy(samples[n:], s.pending)
			s.pending = s.pending[c:]
			return n + c, err
		}
	}
	return n, nil
}
