// ABOUTME: Tests for the engine Prometheus collector
// ABOUTME: Compares exported samples against fixed and live stats
package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/pico-audio-go/pkg/i2s"
)

type fixedStats i2s.Stats

func (f *fixedStats) Stats() i2s.Stats { return i2s.Stats(*f) }

func TestCollectorExportsStats(t *testing.T) {
	stats := &fixedStats{
		Enabled:        true,
		Transfers:      52,
		Underruns:      2,
		Callbacks:      50,
		DroppedEvents:  1,
		DividerUpdates: 3,
		SampleRate:     48000,
		Divider:        i2s.Divider(10416),
		Free:           1,
		Prepared:       0,
	}
	c := NewEngineCollector(stats, "abcd1234")

	expected := `
# HELP i2s_transfers_total DMA transfers issued, silence included
# TYPE i2s_transfers_total counter
i2s_transfers_total{engine="abcd1234"} 52
# HELP i2s_underruns_total Transfers that played silence because no buffer was prepared
# TYPE i2s_underruns_total counter
i2s_underruns_total{engine="abcd1234"} 2
# HELP i2s_clock_divider PIO clock divider in system clock cycles
# TYPE i2s_clock_divider gauge
i2s_clock_divider{engine="abcd1234"} 40.6875
# HELP i2s_consumer_buffers Consumer pool buffers by list
# TYPE i2s_consumer_buffers gauge
i2s_consumer_buffers{engine="abcd1234",list="free"} 1
i2s_consumer_buffers{engine="abcd1234",list="prepared"} 0
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"i2s_transfers_total", "i2s_underruns_total", "i2s_clock_divider", "i2s_consumer_buffers")
	require.NoError(t, err)

	assert.Equal(t, 10, testutil.CollectAndCount(c))
}

func TestCollectorReadsLiveStats(t *testing.T) {
	stats := &fixedStats{}
	reg := prometheus.NewPedanticRegistry()
	c, err := Register(reg, stats, "e1")
	require.NoError(t, err)

	stats.Callbacks = 7
	stats.Enabled = true

	expected := `
# HELP i2s_callbacks_total Per-transfer callbacks run
# TYPE i2s_callbacks_total counter
i2s_callbacks_total{engine="e1"} 7
# HELP i2s_enabled Whether the engine is streaming
# TYPE i2s_enabled gauge
i2s_enabled{engine="e1"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "i2s_callbacks_total", "i2s_enabled"))

	_, err = Register(reg, stats, "e1")
	assert.Error(t, err, "duplicate registration")
	assert.NotNil(t, c)
}
