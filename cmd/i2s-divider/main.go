// ABOUTME: Prints PIO clock dividers for common I2S sample rates
// ABOUTME: Shows whole and fractional parts, the rate actually produced and its error
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s/sim"
)

var (
	clockHz = flag.Uint("clock", sim.DefaultSystemClockHz, "System clock in Hz")
	rates   = flag.String("rates", "8000,11025,16000,22050,32000,44100,48000,88200,96000,192000", "Comma separated sample rates")
	bits    = flag.String("bits", "8,16,32", "Comma separated sample widths")
)

func main() {
	flag.Parse()

	rateList, err := parseList(*rates)
	if err != nil {
		log.Fatalf("Invalid -rates: %v", err)
	}
	bitList, err := parseList(*bits)
	if err != nil {
		log.Fatalf("Invalid -bits: %v", err)
	}

	sys := uint32(*clockHz)
	fmt.Printf("System clock %d Hz, stereo\n\n", sys)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "rate\tbits\tdivider\twhole\tfrac\tactual\terror\t")
	for _, r := range rateList {
		for _, b := range bitList {
			pcm := pcmFor(b)
			div, err := i2s.ComputeDivider(sys, uint32(r), pcm, audio.Stereo)
			if err != nil {
				fmt.Fprintf(w, "%d\t%d\t%v\t\t\t\t\t\n", r, b, err)
				continue
			}
			actual := div.EffectiveSampleRate(sys, pcm, audio.Stereo)
			fmt.Fprintf(w, "%d\t%d\t%.4f\t%d\t%d\t%.2f\t%+.3f%%\t\n",
				r, b, div.Float(), div.Whole(), div.Frac(), actual, (actual-float64(r))/float64(r)*100)
		}
	}
	w.Flush()
}

func pcmFor(bits int) audio.PCMFormat {
	switch bits {
	case 8:
		return audio.PCMS8
	case 16:
		return audio.PCMS16
	default:
		return audio.PCMS32
	}
}

func parseList(s string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("bad value %q", field)
		}
		out = append(out, n)
	}
	return out, nil
}
