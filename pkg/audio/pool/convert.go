// ABOUTME: Sample format converter registry
// ABOUTME: Maps source/destination width and channel pairs to conversion functions
package pool

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
)

// ErrUnsupportedConversion is returned for format pairs without a converter
var ErrUnsupportedConversion = errors.New("unsupported sample conversion")

// ConvertFunc converts n sample groups from src starting at group srcPos into
// dst starting at group dstPos.
type ConvertFunc func(dst []byte, dstPos int, src []byte, srcPos int, n int)

type convKey struct {
	srcPCM      audio.PCMFormat
	srcChannels int
	dstPCM      audio.PCMFormat
	dstChannels int
}

var converters = buildConverters()

func buildConverters() map[convKey]ConvertFunc {
	m := make(map[convKey]ConvertFunc)
	channelPairs := [][2]int{
		{audio.Mono, audio.Mono},
		{audio.Mono, audio.Stereo},
		{audio.Stereo, audio.Stereo},
	}
	for _, src := range []audio.PCMFormat{audio.PCMS8, audio.PCMS16, audio.PCMS32} {
		for _, dst := range []audio.PCMFormat{audio.PCMS16, audio.PCMS32} {
			for _, ch := range channelPairs {
				key := convKey{src, ch[0], dst, ch[1]}
				m[key] = makeConverter(key)
			}
		}
	}
	return m
}

func makeConverter(k convKey) ConvertFunc {
	if k.srcPCM == k.dstPCM && k.srcChannels == k.dstChannels {
		stride := k.srcPCM.BytesPerSample() * k.srcChannels
		return func(dst []byte, dstPos int, src []byte, srcPos int, n int) {
			copy(dst[dstPos*stride:(dstPos+n)*stride], src[srcPos*stride:])
		}
	}
	return func(dst []byte, dstPos int, src []byte, srcPos int, n int) {
		for i := 0; i < n; i++ {
			for ch := 0; ch < k.dstChannels; ch++ {
				srcCh := ch
				if srcCh >= k.srcChannels {
					srcCh = k.srcChannels - 1
				}
				s := audio.ReadSample(src, k.srcPCM, (srcPos+i)*k.srcChannels+srcCh)
				audio.WriteSample(dst, k.dstPCM, (dstPos+i)*k.dstChannels+ch, s)
			}
		}
	}
}

// LookupConverter returns the converter from src to dst samples. Sample rates
// are not compared.
func LookupConverter(src, dst audio.Format) (ConvertFunc, error) {
	fn, ok := converters[convKey{src.PCM, src.Channels, dst.PCM, dst.Channels}]
	if !ok {
		return nil, fmt.Errorf("%w: %v/%dch to %v/%dch", ErrUnsupportedConversion,
			src.PCM, src.Channels, dst.PCM, dst.Channels)
	}
	return fn, nil
}
