package loadaverage

import (
	"github.com/shirou/gopsutil/v3/load"

	"benchmark_agent/internal/plugin"
)

// collect 读取 1 分钟平均负载
func collect() (float64, error) {
	avg, err := load.Avg()
	if err != nil {
		return 0, err
	}
	return avg.Load1, nil
}

// Params 插件构造参数
type Params struct {
	IntervalMins float64 `mapstructure:"interval_mins" optional:"true"`
}

// Factory 系统负载插件的工厂
type Factory struct{}

// Type 返回插件注册名
func (Factory) Type() string {
	return "LoadAverage"
}

// Parameters 返回参数结构体
func (Factory) Parameters() interface{} {
	return &Params{IntervalMins: 1}
}

// Create 构造插件
func (Factory) Create(params interface{}) (plugin.Plugin, error) {
	p := params.(*Params)
	return plugin.NewCollector("load-average", p.IntervalMins, "processes", collect), nil
}
