package timeseries

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndLast(t *testing.T) {
	ts := New("cpu-frequency")
	assert.Equal(t, "cpu-frequency", ts.Name())
	assert.Equal(t, 0, ts.Len())

	_, ok := ts.Last()
	assert.False(t, ok)

	ts.Append(1.0)
	ts.Append(2.0)

	assert.Equal(t, 2, ts.Len())
	last, ok := ts.Last()
	require.True(t, ok)
	assert.Equal(t, 2.0, last)
	assert.Len(t, ts.Timestamps(), 2)
}

func TestClear(t *testing.T) {
	ts := New("metric")
	ts.Append(1.0)
	ts.Clear()

	assert.Equal(t, 0, ts.Len())
	assert.Empty(t, ts.Values())
	assert.Empty(t, ts.Timestamps())
}

func TestStatistics(t *testing.T) {
	ts := New("metric")
	ts.Append(20.0)
	ts.Append(80.0)

	statistics := ts.Statistics(nil)

	assert.Equal(t, 20.0, statistics["min"])
	assert.Equal(t, 80.0, statistics["max"])
	assert.Equal(t, 50.0, statistics["mean"])
	assert.Equal(t, 35.0, statistics["q25"])
	assert.Equal(t, 50.0, statistics["median"])
	assert.Equal(t, 65.0, statistics["q75"])
	assert.Equal(t, 2, statistics["total_count"])
	assert.Equal(t, 2, statistics["valid_count"])
}

func TestStatisticsFiltersNaN(t *testing.T) {
	ts := New("metric")
	ts.Append(10.0)
	ts.Append(math.NaN())
	ts.Append(30.0)

	statistics := ts.Statistics([]string{"min", "max", "mean"})

	// NaN 采样不参与统计，但 total_count 仍然计入
	assert.Equal(t, 3, statistics["total_count"])
	assert.Equal(t, 2, statistics["valid_count"])
	assert.Equal(t, 10.0, statistics["min"])
	assert.Equal(t, 30.0, statistics["max"])
	assert.Equal(t, 20.0, statistics["mean"])
}

func TestStatisticsEmpty(t *testing.T) {
	ts := New("metric")
	assert.Empty(t, ts.Statistics(nil))
}

func TestStatisticsAllNaN(t *testing.T) {
	ts := New("metric")
	ts.Append(math.NaN())

	statistics := ts.Statistics([]string{"mean"})
	assert.Equal(t, 1, statistics["total_count"])
	assert.Equal(t, 0, statistics["valid_count"])
	assert.True(t, math.IsNaN(statistics["mean"].(float64)))
}

func TestStatisticsSkipsVectorSamples(t *testing.T) {
	ts := New("metric")
	ts.Append(10.0)
	ts.Append([]float64{1, 2})

	statistics := ts.Statistics([]string{"mean"})
	assert.Equal(t, 2, statistics["total_count"])
	assert.Equal(t, 1, statistics["valid_count"])
	assert.Equal(t, 10.0, statistics["mean"])
}

func TestReport(t *testing.T) {
	ts := New("metric")
	ts.Append(20.0)
	ts.Append(80.0)

	report := ts.Report()

	assert.Equal(t, []interface{}{20.0, 80.0}, report["values"])
	assert.Equal(t, ts.Timestamps()[0], report["start_time"])
	assert.Equal(t, ts.Timestamps()[1], report["end_time"])

	statistics, ok := report["statistics"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 50.0, statistics["mean"])
}

func TestReportEmpty(t *testing.T) {
	ts := New("metric")
	report := ts.Report()

	assert.Equal(t, []interface{}{}, report["values"])
	assert.Empty(t, report["statistics"])
	assert.NotContains(t, report, "start_time")
	assert.NotContains(t, report, "end_time")
}
