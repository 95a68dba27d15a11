// ABOUTME: Prometheus collector for I2S engine counters
// ABOUTME: Reads a Stats snapshot on every scrape so the interrupt path never touches prometheus
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s"
)

// StatsSource is anything that can report engine counters
type StatsSource interface {
	Stats() i2s.Stats
}

// EngineCollector exports engine counters as Prometheus metrics
type EngineCollector struct {
	source StatsSource

	enabled        *prometheus.Desc
	transfers      *prometheus.Desc
	underruns      *prometheus.Desc
	callbacks      *prometheus.Desc
	droppedEvents  *prometheus.Desc
	dividerUpdates *prometheus.Desc
	sampleRate     *prometheus.Desc
	divider        *prometheus.Desc
	buffers        *prometheus.Desc
}

// NewEngineCollector creates a collector labelled with the engine id
func NewEngineCollector(source StatsSource, engineID string) *EngineCollector {
	labels := prometheus.Labels{"engine": engineID}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc("i2s_"+name, help, variable, labels)
	}

	return &EngineCollector{
		source:         source,
		enabled:        desc("enabled", "Whether the engine is streaming"),
		transfers:      desc("transfers_total", "DMA transfers issued, silence included"),
		underruns:      desc("underruns_total", "Transfers that played silence because no buffer was prepared"),
		callbacks:      desc("callbacks_total", "Per-transfer callbacks run"),
		droppedEvents:  desc("dropped_events_total", "Worker events dropped because the queue was full"),
		dividerUpdates: desc("divider_updates_total", "Clock divider reprogrammings after a producer rate change"),
		sampleRate:     desc("sample_rate_hz", "Sample rate the divider is programmed for"),
		divider:        desc("clock_divider", "PIO clock divider in system clock cycles"),
		buffers:        desc("consumer_buffers", "Consumer pool buffers by list", "list"),
	}
}

// Register creates a collector for source and registers it
func Register(registry prometheus.Registerer, source StatsSource, engineID string) (*EngineCollector, error) {
	c := NewEngineCollector(source, engineID)
	if err := registry.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Describe implements prometheus.Collector
func (c *EngineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.enabled
	ch <- c.transfers
	ch <- c.underruns
	ch <- c.callbacks
	ch <- c.droppedEvents
	ch <- c.dividerUpdates
	ch <- c.sampleRate
	ch <- c.divider
	ch <- c.buffers
}

// Collect implements prometheus.Collector
func (c *EngineCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()

	enabled := 0.0
	if s.Enabled {
		enabled = 1
	}
	ch <- prometheus.MustNewConstMetric(c.enabled, prometheus.GaugeValue, enabled)
	ch <- prometheus.MustNewConstMetric(c.transfers, prometheus.CounterValue, float64(s.Transfers))
	ch <- prometheus.MustNewConstMetric(c.underruns, prometheus.CounterValue, float64(s.Underruns))
	ch <- prometheus.MustNewConstMetric(c.callbacks, prometheus.CounterValue, float64(s.Callbacks))
	ch <- prometheus.MustNewConstMetric(c.droppedEvents, prometheus.CounterValue, float64(s.DroppedEvents))
	ch <- prometheus.MustNewConstMetric(c.dividerUpdates, prometheus.CounterValue, float64(s.DividerUpdates))
	ch <- prometheus.MustNewConstMetric(c.sampleRate, prometheus.GaugeValue, float64(s.SampleRate))
	ch <- prometheus.MustNewConstMetric(c.divider, prometheus.GaugeValue, s.Divider.Float())
	ch <- prometheus.MustNewConstMetric(c.buffers, prometheus.GaugeValue, float64(s.Free), "free")
	ch <- prometheus.MustNewConstMetric(c.buffers, prometheus.GaugeValue, float64(s.Prepared), "prepared")
}
