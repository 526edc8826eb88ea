package plugin

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchmark_agent/internal/event"
)

func runCollector(t *testing.T, collector *Collector, window time.Duration) Result {
	t.Helper()

	instance := NewInstance("collector", collector)
	stop := event.New()

	done := make(chan struct{})
	go func() {
		defer close(done)
		instance.Start(stop)
	}()

	time.Sleep(window)
	stop.Set()
	<-done

	result, err := instance.Result()
	require.NoError(t, err)
	return result
}

func TestCollectorSamples(t *testing.T) {
	next := 0.0
	collector := NewCollector("counter", 0.05/60, "units", func() (float64, error) {
		next++
		return next * 10, nil
	})

	result := runCollector(t, collector, 120*time.Millisecond)

	assert.Equal(t, StatusSuccess, result.Status())
	assert.Equal(t, "units", result["unit"])
	assert.InDelta(t, 0.05, result["interval_secs"].(float64), 1e-9)

	values, ok := result["values"].([]interface{})
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(values), 2)
	assert.Equal(t, 10.0, values[0])
}

func TestCollectorFailedSampleBecomesNaN(t *testing.T) {
	fail := true
	collector := NewCollector("flaky", 0.02/60, "units", func() (float64, error) {
		fail = !fail
		if fail {
			return 0, errors.New("sensor unavailable")
		}
		return 5.0, nil
	})

	result := runCollector(t, collector, 90*time.Millisecond)

	// 采集失败在序列里留 NaN，不中断整轮采集
	assert.Equal(t, StatusSuccess, result.Status())
	values := result["values"].([]interface{})
	sawNaN := false
	for _, value := range values {
		if scalar, ok := value.(float64); ok && math.IsNaN(scalar) {
			sawNaN = true
		}
	}
	assert.True(t, sawNaN)
}

func TestCollectorClearsBufferOnRestart(t *testing.T) {
	collector := NewCollector("counter", 1, "units", func() (float64, error) {
		return 1.0, nil
	})

	collector.Series().Append(99.0)
	require.NoError(t, collector.OnStart())

	assert.Equal(t, 0, collector.Series().Len())
}
