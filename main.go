// ABOUTME: Entry point for the host I2S audio player
// ABOUTME: Parses CLI flags and streams a source through the simulated Pico I2S engine
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Resonate-Protocol/pico-audio-go/internal/app"
	"github.com/Resonate-Protocol/pico-audio-go/internal/config"
	"github.com/Resonate-Protocol/pico-audio-go/internal/metrics"
	"github.com/Resonate-Protocol/pico-audio-go/internal/source"
	"github.com/Resonate-Protocol/pico-audio-go/internal/ui"
	"github.com/Resonate-Protocol/pico-audio-go/internal/version"
	"github.com/Resonate-Protocol/pico-audio-go/pkg/audio/output"
)

var (
	configPath  = flag.String("config", "", "Board profile YAML (default: stock Pico)")
	rate        = flag.Int("rate", 0, "Output sample rate in Hz (overrides profile)")
	bits        = flag.Int("bits", 0, "Output sample width, 16 or 32 (overrides profile)")
	sourceKind  = flag.String("source", "tone", "Audio source: tone or file")
	file        = flag.String("file", "", "MP3 or FLAC file for -source file")
	freq        = flag.Float64("freq", source.DefaultToneFrequency, "Tone frequency in Hz")
	sinkKind    = flag.String("sink", output.KindOto, "Output sink: oto, malgo, wav or none")
	wavOut      = flag.String("wav-out", "i2s-capture.wav", "WAV file for -sink wav")
	buffers     = flag.Int("buffers", 0, "Consumer pool buffer count (overrides profile)")
	samples     = flag.Int("samples", 0, "Samples per buffer (overrides profile)")
	worker      = flag.Bool("worker", false, "Run the fill callback on the worker instead of inline")
	onGive      = flag.Bool("on-give", false, "Convert on producer give instead of consumer take")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	logFile     = flag.String("log-file", "pico-audio.log", "Log file path")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	duration    = flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("%s %s (%s)", version.Product, version.Version, version.Manufacturer)

	prof, err := loadProfile()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	path := ""
	switch *sourceKind {
	case "tone":
	case "file", "mp3", "flac":
		if *file == "" {
			log.Fatalf("-source %s needs -file", *sourceKind)
		}
		path = *file
	default:
		log.Fatalf("Unknown source %q (tone, file)", *sourceKind)
	}

	src, err := source.New(path, *freq, prof.Audio.SampleRate)
	if err != nil {
		log.Fatalf("Failed to open source: %v", err)
	}

	sink, err := output.New(*sinkKind, *wavOut)
	if err != nil {
		log.Fatalf("Failed to create sink: %v", err)
	}

	player, err := app.New(app.Config{Profile: prof, Source: src, Sink: sink})
	if err != nil {
		log.Fatalf("Failed to create player: %v", err)
	}
	defer func() {
		if err := player.Close(); err != nil {
			log.Printf("Error closing player: %v", err)
		}
	}()

	if *metricsAddr != "" {
		go serveMetrics(player)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Printf("Shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	var tuiProg *tea.Program
	if useTUI {
		volumeCtrl := ui.NewVolumeControl()
		volume := 100
		if tone, ok := src.(*source.Tone); ok {
			volume = tone.Volume()
		}
		tuiProg = ui.Run(volumeCtrl, volume)
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
			cancel()
		}()
		go handleVolumeControl(ctx, src, volumeCtrl, cancel)
		go statsUpdateLoop(ctx, player, prof, tuiProg.Send)
	}

	if err := player.Run(ctx); err != nil {
		log.Printf("Playback stopped with error: %v", err)
	}

	if tuiProg != nil {
		tuiProg.Quit()
		tuiProg.Wait()
	}

	stats := player.Stats().Engine
	log.Printf("Player stopped: %d transfers, %d underruns, %d callbacks", stats.Transfers, stats.Underruns, stats.Callbacks)
}

// loadProfile reads the board profile and applies flag overrides
func loadProfile() (*config.Profile, error) {
	prof := config.Default()
	if *configPath != "" {
		var err error
		if prof, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}

	if *rate > 0 {
		prof.Audio.SampleRate = uint32(*rate)
	}
	if *bits > 0 {
		prof.Audio.Bits = *bits
	}
	if *buffers > 0 {
		prof.Buffers.Consumer = *buffers
	}
	if *samples > 0 {
		prof.Buffers.Samples = *samples
	}
	if *worker {
		prof.Callback.Mode = "worker"
	}
	if *onGive {
		prof.Buffers.OnGive = true
	}
	return prof, prof.Validate()
}

func serveMetrics(player *app.Player) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if _, err := metrics.Register(reg, player.Engine(), player.Engine().ID()); err != nil {
		log.Printf("Failed to register metrics: %v", err)
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.Printf("Serving metrics on %s/metrics", *metricsAddr)
	if err := http.ListenAndServe(*metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("Metrics server stopped: %v", err)
	}
}

// handleVolumeControl applies TUI volume changes to a tone source
func handleVolumeControl(ctx context.Context, src source.Source, volumeCtrl *ui.VolumeControl, quit context.CancelFunc) {
	tone, _ := src.(*source.Tone)
	for {
		select {
		case vol := <-volumeCtrl.Changes:
			if tone == nil {
				log.Printf("Volume control only applies to the test tone")
				continue
			}
			tone.SetVolume(vol.Volume)
			tone.SetMuted(vol.Muted)
		case <-volumeCtrl.Quit:
			log.Printf("Received quit signal from TUI")
			quit()
			return
		case <-ctx.Done():
			return
		}
	}
}

// statsUpdateLoop periodically updates the TUI with engine statistics
func statsUpdateLoop(ctx context.Context, player *app.Player, prof *config.Profile, send func(tea.Msg)) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	// runtime stats are expensive, sample them less often
	runtimeTicker := time.NewTicker(2 * time.Second)
	defer runtimeTicker.Stop()

	format := prof.Format()
	send(ui.StatusMsg{
		Title:      player.Source().Title(),
		SampleRate: int(format.SampleRate),
		Bits:       format.PCM.Bits(),
		Channels:   format.Channels,
		Sink:       *sinkKind,
	})

	for {
		select {
		case <-ctx.Done():
			return

		case <-runtimeTicker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			send(ui.StatusMsg{Goroutines: runtime.NumGoroutine(), MemAlloc: m.Alloc})

		case <-ticker.C:
			s := player.Stats()
			e := s.Engine
			enabled := e.Enabled
			send(ui.StatusMsg{
				Enabled:       &enabled,
				Divider:       e.Divider.String(),
				EffectiveRate: e.Divider.EffectiveSampleRate(prof.SystemClockHz, format.PCM, format.Channels),
				Stats:         true,
				Transfers:     e.Transfers,
				Underruns:     e.Underruns,
				Callbacks:     e.Callbacks,
				DroppedEvents: e.DroppedEvents,
				Free:          e.Free,
				Prepared:      e.Prepared,
				Filled:        s.Filled,
				SourceError:   s.SourceError,
			})
		}
	}
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "%s %s\n\nUsage: %s [flags]\n", version.Product, version.Version, os.Args[0])
		flag.PrintDefaults()
	}
}
