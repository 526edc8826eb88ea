package cpufrequency

import (
	"errors"

	"github.com/shirou/gopsutil/v3/cpu"

	"benchmark_agent/internal/plugin"
)

// collect 读取全部核心的当前频率均值，MHz
func collect() (float64, error) {
	info, err := cpu.Info()
	if err != nil {
		return 0, err
	}
	if len(info) == 0 {
		return 0, errors.New("no cpu information available")
	}

	total := 0.0
	for _, core := range info {
		total += core.Mhz
	}
	return total / float64(len(info)), nil
}

// Params 插件构造参数
type Params struct {
	IntervalMins float64 `mapstructure:"interval_mins" optional:"true"`
}

// Factory CPU 频率插件的工厂
type Factory struct{}

// Type 返回插件注册名
func (Factory) Type() string {
	return "CpuFrequency"
}

// Parameters 返回参数结构体
func (Factory) Parameters() interface{} {
	return &Params{IntervalMins: 1}
}

// Create 构造插件
func (Factory) Create(params interface{}) (plugin.Plugin, error) {
	p := params.(*Params)
	return plugin.NewCollector("cpu-frequency", p.IntervalMins, "MHz", collect), nil
}
