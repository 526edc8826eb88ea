package raplpower

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"benchmark_agent/internal/plugin"
)

// defaultPowercapPath intel-rapl 能耗计数器的标准位置
const defaultPowercapPath = "/sys/class/powercap"

// reader 读取全部 RAPL 域的累计能耗并折算成平均功率
//
// energy_uj 是单调递增的微焦耳计数器，功率由相邻两次读数的差值
// 除以间隔得到。第一次采样没有基线，计数器回绕时差值为负，两种
// 情况都记 NaN。
type reader struct {
	path         string
	intervalSecs float64
	previous     map[string]float64
}

func newReader(path string, intervalSecs float64) *reader {
	return &reader{
		path:         path,
		intervalSecs: intervalSecs,
		previous:     map[string]float64{},
	}
}

func (r *reader) collect() (float64, error) {
	current, err := r.readCounters()
	if err != nil {
		return 0, err
	}

	previous := r.previous
	r.previous = current
	if len(previous) == 0 {
		return math.NaN(), nil
	}

	totalDelta := 0.0
	for domain, energy := range current {
		base, ok := previous[domain]
		if !ok || energy < base {
			return math.NaN(), nil
		}
		totalDelta += energy - base
	}
	// 微焦耳差值折算成瓦特
	return totalDelta / 1e6 / r.intervalSecs, nil
}

func (r *reader) readCounters() (map[string]float64, error) {
	pattern := filepath.Join(r.path, "intel-rapl:*")
	domains, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(domains)

	counters := map[string]float64{}
	for _, domain := range domains {
		// 子域 intel-rapl:N:M 的能耗已经计入包级计数器
		if strings.Count(filepath.Base(domain), ":") > 1 {
			continue
		}
		data, err := os.ReadFile(filepath.Join(domain, "energy_uj"))
		if err != nil {
			return nil, err
		}
		energy, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", domain, err)
		}
		counters[filepath.Base(domain)] = energy
	}
	if len(counters) == 0 {
		return nil, fmt.Errorf("no RAPL domains found under %s", r.path)
	}
	return counters, nil
}

// Params 插件构造参数
type Params struct {
	IntervalMins float64 `mapstructure:"interval_mins" optional:"true"`
	// PowercapPath 覆盖 powercap 目录位置，主要用于测试
	PowercapPath string `mapstructure:"powercap_path" optional:"true"`
}

// Factory RAPL 功率插件的工厂
type Factory struct{}

// Type 返回插件注册名
func (Factory) Type() string {
	return "RaplPower"
}

// Parameters 返回参数结构体
func (Factory) Parameters() interface{} {
	return &Params{IntervalMins: 1, PowercapPath: defaultPowercapPath}
}

// Create 构造插件
func (Factory) Create(params interface{}) (plugin.Plugin, error) {
	p := params.(*Params)
	r := newReader(p.PowercapPath, p.IntervalMins*60)
	return plugin.NewCollector("rapl-power", p.IntervalMins, "W", r.collect), nil
}
