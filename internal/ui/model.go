// ABOUTME: Bubbletea model for the I2S monitor TUI
// ABOUTME: Defines monitor state, key handling and rendering
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Source
	title string

	// Output
	sampleRate int
	bits       int
	channels   int
	divider    string
	effective  float64
	sink       string

	// Playback
	enabled bool
	volume  int
	muted   bool

	// Engine stats
	transfers     uint64
	underruns     uint64
	callbacks     uint64
	droppedEvents uint64
	free          int
	prepared      int
	filled        uint64
	sourceError   string

	// Runtime
	goroutines int
	memAlloc   uint64

	showDebug bool

	volumeCtrl *VolumeControl

	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderFormat()
	s += m.renderControls()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

func (m Model) renderHeader() string {
	status := "Stopped"
	if m.enabled {
		status = "Streaming"
	}

	return fmt.Sprintf(`┌─ Pico I2S Monitor ───────────────────────────────────┐
│ Status: %-44s │
│ Source: %-44s │
├──────────────────────────────────────────────────────┤
`, status, truncate(m.title, 44))
}

func (m Model) renderFormat() string {
	if m.sampleRate == 0 {
		return "│ No format                                            │\n"
	}

	format := fmt.Sprintf("%dHz %s %d-bit -> %s", m.sampleRate, channelName(m.channels), m.bits, m.sink)
	clock := fmt.Sprintf("%s (actual %.2fHz)", m.divider, m.effective)
	return fmt.Sprintf("│ Format:  %-43s │\n│ Divider: %-43s │\n", truncate(format, 43), truncate(clock, 43))
}

func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " 🔇"
	}

	volumeBar := renderBar(m.volume, 100, 10)
	line := fmt.Sprintf("[%s] %d%%%s", volumeBar, m.volume, muteIcon)
	return fmt.Sprintf("│                                                      │\n"+
		"│ Volume: %-44s │\n"+
		"│ Buffers: %d free, %d prepared%-24s │\n",
		line, m.free, m.prepared, "")
}

func (m Model) renderStats() string {
	s := fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Transfers: %d  Underruns: %d  Callbacks: %d%-5s │
`, m.transfers, m.underruns, m.callbacks, "")
	if m.sourceError != "" {
		s += fmt.Sprintf("│ Source error: %-38s │\n", truncate(m.sourceError, 38))
	}
	return s
}

func (m Model) renderHelp() string {
	return `│ ↑/↓:Volume  m:Mute  d:Debug  q:Quit                  │
└──────────────────────────────────────────────────────┘
`
}

func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Goroutines: %-38d │
│   Heap: %-44s │
│   Dropped events: %-34d │
│   Buffers filled: %-34d │
`, m.goroutines, fmt.Sprintf("%.1f MiB", float64(m.memAlloc)/(1<<20)), m.droppedEvents, m.filled)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.volumeCtrl != nil {
			select {
			case m.volumeCtrl.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "up":
		m.volume = min(m.volume+5, 100)
		m.sendVolume()
	case "down":
		m.volume = max(m.volume-5, 0)
		m.sendVolume()
	case "m":
		m.muted = !m.muted
		m.sendVolume()
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

func (m Model) sendVolume() {
	if m.volumeCtrl == nil {
		return
	}
	select {
	case m.volumeCtrl.Changes <- VolumeChangeMsg{Volume: m.volume, Muted: m.muted}:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Title != "" {
		m.title = msg.Title
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
		m.bits = msg.Bits
		m.channels = msg.Channels
		m.sink = msg.Sink
	}
	if msg.Divider != "" {
		m.divider = msg.Divider
		m.effective = msg.EffectiveRate
	}
	if msg.Enabled != nil {
		m.enabled = *msg.Enabled
	}
	if msg.Volume != 0 {
		m.volume = msg.Volume
	}
	if msg.Stats {
		m.transfers = msg.Transfers
		m.underruns = msg.Underruns
		m.callbacks = msg.Callbacks
		m.droppedEvents = msg.DroppedEvents
		m.free = msg.Free
		m.prepared = msg.Prepared
		m.filled = msg.Filled
		m.sourceError = msg.SourceError
	}
	if msg.Goroutines != 0 {
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
	}
}

// StatusMsg updates TUI state. Counters apply only when Stats is set so a
// zero count is not mistaken for a missing one.
type StatusMsg struct {
	Title         string
	SampleRate    int
	Bits          int
	Channels      int
	Sink          string
	Divider       string
	EffectiveRate float64
	Enabled       *bool
	Volume        int

	Stats         bool
	Transfers     uint64
	Underruns     uint64
	Callbacks     uint64
	DroppedEvents uint64
	Free          int
	Prepared      int
	Filled        uint64
	SourceError   string

	Goroutines int
	MemAlloc   uint64
}

func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}
