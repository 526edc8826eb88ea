package commandexec

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchmark_agent/internal/event"
	"benchmark_agent/internal/metric"
)

func definitions(t *testing.T, entries map[string]map[string]interface{}) map[string]*metric.Definition {
	t.Helper()
	built, err := metric.Catalogue(entries).Definitions(metric.DefaultGranularitySecs)
	require.NoError(t, err)
	return built
}

func metricEntry(command string, intervalMins float64) map[string]interface{} {
	return map[string]interface{}{
		"command":       command,
		"regex":         `value=(?P<value>\d+)`,
		"unit":          "units",
		"interval_mins": intervalMins,
	}
}

func TestNextBatch(t *testing.T) {
	p := New(definitions(t, map[string]map[string]interface{}{
		"one":  metricEntry("cmd-1", 1),
		"two":  metricEntry("cmd-2", 2),
		"five": metricEntry("cmd-5", 5),
	}), nil)

	// T0+3:30：1 分钟与 2 分钟的指标都在 30 秒后到期，5 分钟的还早
	wait, due := p.nextBatch(210)

	assert.InDelta(t, 30.0, wait.Seconds(), 1e-6)
	names := make([]string, 0, len(due))
	for _, m := range due {
		names = append(names, m.definition.Name)
	}
	assert.ElementsMatch(t, []string{"one", "two"}, names)
}

func TestCollectDeduplicatesCommands(t *testing.T) {
	var calls atomic.Int32
	run := func(command string) (string, error) {
		calls.Add(1)
		return "value=7", nil
	}

	p := New(definitions(t, map[string]map[string]interface{}{
		"first":  metricEntry("shared-command", 1),
		"second": metricEntry("shared-command", 1),
	}), run)

	p.collect(p.metrics)

	// 两个指标共享一条命令，批次内只执行一次
	assert.Equal(t, int32(1), calls.Load())
	for _, m := range p.metrics {
		last, ok := m.series.Last()
		require.True(t, ok)
		assert.Equal(t, 7.0, last)
	}
}

func TestCollectCommandFailureBecomesNaN(t *testing.T) {
	run := func(command string) (string, error) {
		return "", errors.New("command not found")
	}

	p := New(definitions(t, map[string]map[string]interface{}{
		"doomed": metricEntry("missing-tool", 1),
	}), run)

	p.collect(p.metrics)

	last, ok := p.metrics[0].series.Last()
	require.True(t, ok)
	assert.True(t, math.IsNaN(last.(float64)))
}

func TestCollectUnparsableOutputBecomesNaN(t *testing.T) {
	run := func(command string) (string, error) {
		return "nothing matches here", nil
	}

	entry := metricEntry("some-tool", 1)
	entry["aggregation"] = "average"
	p := New(definitions(t, map[string]map[string]interface{}{"empty": entry}), run)

	p.collect(p.metrics)

	last, ok := p.metrics[0].series.Last()
	require.True(t, ok)
	assert.True(t, math.IsNaN(last.(float64)))
}

func TestRunCollectsImmediately(t *testing.T) {
	var calls atomic.Int32
	run := func(command string) (string, error) {
		calls.Add(1)
		return "value=1", nil
	}

	p := New(definitions(t, map[string]map[string]interface{}{
		"slow": metricEntry("cmd", 60),
	}), run)

	stop := event.New()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(stop)
	}()

	assert.Eventually(t, func() bool { return calls.Load() == 1 },
		time.Second, 10*time.Millisecond)
	stop.Set()
	<-done
}

func TestOnEndReportShape(t *testing.T) {
	run := func(command string) (string, error) {
		return "value=20\nvalue=80", nil
	}

	entry := metricEntry("cmd", 1)
	entry["aggregation"] = "average"
	entry["statistics"] = "min, max"
	p := New(definitions(t, map[string]map[string]interface{}{"signal": entry}), run)

	require.NoError(t, p.OnStart())
	p.collect(p.metrics)

	report, err := p.OnEnd()
	require.NoError(t, err)

	entryReport, ok := report["signal"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "cmd", entryReport["command"])
	assert.Equal(t, "units", entryReport["unit"])
	assert.Equal(t, []interface{}{50.0}, entryReport["values"])

	statistics, ok := entryReport["statistics"].(map[string]interface{})
	require.True(t, ok)
	// 配置的统计量替换默认集合
	assert.Len(t, statistics, 4)
	assert.Equal(t, 50.0, statistics["min"])
	assert.Equal(t, 50.0, statistics["max"])
	assert.Equal(t, 1, statistics["total_count"])
}

func TestOnStartClearsSeries(t *testing.T) {
	p := New(definitions(t, map[string]map[string]interface{}{
		"signal": metricEntry("cmd", 1),
	}), func(string) (string, error) { return "value=1", nil })

	p.collect(p.metrics)
	require.NoError(t, p.OnStart())

	assert.Equal(t, 0, p.metrics[0].series.Len())
}

func TestFactoryWithCatalogue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
used-memory:
  command: free -m
  regex: 'Mem: *(\d+) *(?P<value>\d+).*'
  unit: MiB
  interval_mins: 1
`), 0644))

	factory := Factory{}
	params := factory.Parameters().(*Params)
	params.Catalogue = path

	built, err := factory.Create(params)
	require.NoError(t, err)
	assert.Equal(t, []string{"used-memory"}, built.(*Plugin).MetricNames())
}

func TestFactoryRejectsEmptyConfig(t *testing.T) {
	factory := Factory{}
	_, err := factory.Create(factory.Parameters())
	assert.Error(t, err)
}

func TestFactoryRejectsDuplicateMetric(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
signal:
  command: cmd
  regex: '(?P<value>\d+)'
  unit: units
  interval_mins: 1
`), 0644))

	factory := Factory{}
	params := factory.Parameters().(*Params)
	params.Catalogue = path
	params.Metrics = map[string]map[string]interface{}{"signal": metricEntry("cmd", 1)}

	_, err := factory.Create(params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signal")
}
