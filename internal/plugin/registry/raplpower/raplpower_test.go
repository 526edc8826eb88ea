package raplpower

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCounter(t *testing.T, root, domain string, energyUJ int64) {
	t.Helper()
	dir := filepath.Join(root, domain)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "energy_uj"),
		[]byte(strconv.FormatInt(energyUJ, 10)+"\n"), 0644))
}

func TestCollectFirstSampleIsNaN(t *testing.T) {
	root := t.TempDir()
	writeCounter(t, root, "intel-rapl:0", 1_000_000)

	r := newReader(root, 10)
	value, err := r.collect()
	require.NoError(t, err)

	// 没有基线读数，第一次采样没有功率可言
	assert.True(t, math.IsNaN(value))
}

func TestCollectComputesWatts(t *testing.T) {
	root := t.TempDir()
	writeCounter(t, root, "intel-rapl:0", 1_000_000)

	r := newReader(root, 10)
	_, err := r.collect()
	require.NoError(t, err)

	// 10 秒内增加 50 焦耳，等效 5 瓦
	writeCounter(t, root, "intel-rapl:0", 51_000_000)
	value, err := r.collect()
	require.NoError(t, err)
	assert.InDelta(t, 5.0, value, 1e-9)
}

func TestCollectSumsPackages(t *testing.T) {
	root := t.TempDir()
	writeCounter(t, root, "intel-rapl:0", 0)
	writeCounter(t, root, "intel-rapl:1", 0)

	r := newReader(root, 1)
	_, err := r.collect()
	require.NoError(t, err)

	writeCounter(t, root, "intel-rapl:0", 1_000_000)
	writeCounter(t, root, "intel-rapl:1", 2_000_000)
	value, err := r.collect()
	require.NoError(t, err)
	assert.InDelta(t, 3.0, value, 1e-9)
}

func TestCollectSkipsSubdomains(t *testing.T) {
	root := t.TempDir()
	writeCounter(t, root, "intel-rapl:0", 0)
	writeCounter(t, root, "intel-rapl:0:0", 0)

	r := newReader(root, 1)
	counters, err := r.readCounters()
	require.NoError(t, err)

	assert.Contains(t, counters, "intel-rapl:0")
	assert.NotContains(t, counters, "intel-rapl:0:0")
}

func TestCollectCounterWrapIsNaN(t *testing.T) {
	root := t.TempDir()
	writeCounter(t, root, "intel-rapl:0", 1_000_000)

	r := newReader(root, 1)
	_, err := r.collect()
	require.NoError(t, err)

	// 计数器回绕后差值为负，这一拍没有可信的功率
	writeCounter(t, root, "intel-rapl:0", 100)
	value, err := r.collect()
	require.NoError(t, err)
	assert.True(t, math.IsNaN(value))
}

func TestCollectNoDomains(t *testing.T) {
	r := newReader(t.TempDir(), 1)
	_, err := r.collect()
	assert.Error(t, err)
}
