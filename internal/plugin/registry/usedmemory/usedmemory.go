package usedmemory

import (
	"github.com/shirou/gopsutil/v3/mem"

	"benchmark_agent/internal/plugin"
)

// collect 读取当前已用物理内存，MiB
func collect() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return float64(vm.Used) / 1024 / 1024, nil
}

// Params 插件构造参数
type Params struct {
	IntervalMins float64 `mapstructure:"interval_mins" optional:"true"`
}

// Factory 已用内存插件的工厂
type Factory struct{}

// Type 返回插件注册名
func (Factory) Type() string {
	return "UsedMemory"
}

// Parameters 返回参数结构体
func (Factory) Parameters() interface{} {
	return &Params{IntervalMins: 1}
}

// Create 构造插件
func (Factory) Create(params interface{}) (plugin.Plugin, error) {
	p := params.(*Params)
	return plugin.NewCollector("used-memory", p.IntervalMins, "MiB", collect), nil
}
