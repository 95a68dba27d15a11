//go:build rp2040 || rp2350

// ABOUTME: TinyGo firmware that plays a two channel sine wave over I2S
// ABOUTME: Table driven oscillators with serial volume and pitch control
package main

import (
	"machine"
	"math"
	"time"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio/pool"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s/rp2"
)

const (
	tableLen          = 2048
	samplesPerBuffer  = 1156
	producerBuffers   = 3
	sampleRate        = 44100
	posMax     uint32 = 0x10000 * tableLen

	// DAC zero sits one code above midscale on the boards this targets
	dacZero int32 = 1
)

var table [tableLen]int32

// oscillator walks the table in 16.16 fixed point
type oscillator struct {
	pos, step uint32
}

func (o *oscillator) next(vol int32) int32 {
	v := table[o.pos>>16] / 256 * vol
	o.pos += o.step
	if o.pos >= posMax {
		o.pos -= posMax
	}
	return v
}

func main() {
	time.Sleep(2 * time.Second)
	println("pico i2s sine: +/- volume, [/] left pitch, {/} right pitch")

	for i := range table {
		table[i] = int32(math.MaxInt32 * math.Cos(float64(i)*2*math.Pi/tableLen))
	}

	format := audio.Format{SampleRate: sampleRate, PCM: audio.PCMS32, Channels: audio.Stereo}
	producer := pool.NewProducer(audio.NewBufferFormat(format), producerBuffers, samplesPerBuffer)

	engine, _, err := i2s.Setup(rp2.NewBoard(), format, format, i2s.DefaultConfig())
	if err != nil {
		panic("i2s setup: " + err.Error())
	}
	if err := engine.Connect(producer); err != nil {
		panic("i2s connect: " + err.Error())
	}

	// start from DAC zero so the first transfers click less
	b := producer.Take(true)
	for i := 0; i < b.MaxSampleCount(); i++ {
		b.SetFrameS32(i, dacZero, dacZero)
	}
	b.SetSampleCount(b.MaxSampleCount())
	producer.Give(b)

	if err := engine.SetEnabled(true); err != nil {
		panic("i2s enable: " + err.Error())
	}

	left := oscillator{step: 0x200000}
	right := oscillator{step: 0x200000}
	vol := int32(8)

	for {
		for machine.Serial.Buffered() > 0 {
			c, _ := machine.Serial.ReadByte()
			switch c {
			case '+', '=':
				vol = min(vol+1, 256)
			case '-':
				vol = max(vol-1, 0)
			case '[':
				left.step = max(left.step-0x10000, 0x10000)
			case ']':
				left.step = min(left.step+0x10000, posMax/16)
			case '{':
				right.step = max(right.step-0x10000, 0x10000)
			case '}':
				right.step = min(right.step+0x10000, posMax/16)
			default:
				continue
			}
			println("vol", vol, "left", left.step>>16, "right", right.step>>16)
		}
		engine.ReportEvents()

		b := producer.Take(true)
		for i := 0; i < b.MaxSampleCount(); i++ {
			b.SetFrameS32(i, left.next(vol), right.next(vol))
		}
		b.SetSampleCount(b.MaxSampleCount())
		producer.Give(b)
	}
}
