// ABOUTME: Streaming linear resampler for interleaved int32 frames
// ABOUTME: Carries the last input frame across calls so chunk boundaries interpolate cleanly
package resample

import "math"

// Resampler converts between sample rates by linear interpolation. It keeps
// one frame of history, so feeding a stream in chunks gives the same result
// as feeding it at once, delayed by one input frame.
type Resampler struct {
	inputRate  uint32
	outputRate uint32
	channels   int
	ratio      float64

	// position is the next output point in frames, counted from prev when
	// primed and from the first frame of the next input otherwise
	position float64
	prev     []int32
	primed   bool
}

// New creates a resampler for interleaved frames of channels samples
func New(inputRate, outputRate uint32, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		prev:       make([]int32, channels),
	}
}

// Ratio returns input frames consumed per output frame
func (r *Resampler) Ratio() float64 {
	return r.ratio
}

// Passthrough reports whether the rates are equal
func (r *Resampler) Passthrough() bool {
	return r.inputRate == r.outputRate
}

// Resample interpolates input into output and returns the number of samples
// written. output should hold at least MaxOutputSamples(len(input)); input
// left unread because output filled up is dropped.
func (r *Resampler) Resample(input, output []int32) int {
	inFrames := len(input) / r.channels
	if inFrames == 0 {
		return 0
	}

	offset := 0
	if r.primed {
		offset = 1
	}
	frames := inFrames + offset

	frame := func(i, ch int) int32 {
		if i < offset {
			return r.prev[ch]
		}
		return input[(i-offset)*r.channels+ch]
	}

	outFrames := len(output) / r.channels
	out := 0
	for out < outFrames {
		idx := int(r.position)
		if idx+1 >= frames {
			break
		}
		frac := r.position - float64(idx)
		for ch := 0; ch < r.channels; ch++ {
			a, b := float64(frame(idx, ch)), float64(frame(idx+1, ch))
			output[out*r.channels+ch] = int32(math.Round(a + (b-a)*frac))
		}
		out++
		r.position += r.ratio
	}

	// the last input frame becomes the left edge of the next call
	copy(r.prev, input[(inFrames-1)*r.channels:inFrames*r.channels])
	r.primed = true
	r.position = max(r.position-float64(frames-1), 0)

	return out * r.channels
}

// Reset drops the carried frame and fractional position
func (r *Resampler) Reset() {
	r.position = 0
	r.primed = false
	clear(r.prev)
}

// MaxOutputSamples returns an output size that always holds the result of
// resampling inputSamples samples
func (r *Resampler) MaxOutputSamples(inputSamples int) int {
	frames := inputSamples/r.channels + 1
	return (int(math.Ceil(float64(frames)/r.ratio)) + 1) * r.channels
}

// InputSamplesNeeded estimates how many input samples produce outputSamples samples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(math.Ceil(float64(outputFrames) * r.ratio))
	return inputFrames * r.channels
}
