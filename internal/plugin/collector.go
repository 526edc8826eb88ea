package plugin

import (
	"math"

	"benchmark_agent/internal/event"
	"benchmark_agent/internal/logger"
	"benchmark_agent/internal/timeseries"
)

// CollectFunc 采集一次数值信号
type CollectFunc func() (float64, error)

// Collector 周期采集单一数值信号并维护时间序列的插件基座
//
// 采集失败记为 NaN，序列里留下一个洞而不是中断整轮采集。
type Collector struct {
	Base

	name         string
	unit         string
	intervalSecs float64
	series       *timeseries.Timeseries
	collect      CollectFunc
}

// NewCollector 构造一个周期采集插件基座
func NewCollector(name string, intervalMins float64, unit string, collect CollectFunc) *Collector {
	return &Collector{
		name:         name,
		unit:         unit,
		intervalSecs: intervalMins * 60,
		series:       timeseries.New(name),
		collect:      collect,
	}
}

// OnStart 清空上一轮的采集缓冲
func (c *Collector) OnStart() error {
	c.series.Clear()
	return nil
}

// Run 按间隔采集直到 stop 置位
func (c *Collector) Run(stop *event.Event) error {
	RunInterval(stop, c.intervalSecs, func() {
		value, err := c.collect()
		if err != nil {
			logger.Warnf("Collector %s: sample failed: %v", c.name, err)
			value = math.NaN()
		}
		c.series.Append(value)
	})
	return nil
}

// OnEnd 输出时间序列报告
func (c *Collector) OnEnd() (map[string]interface{}, error) {
	report := c.series.Report()
	report["unit"] = c.unit
	report["interval_secs"] = c.intervalSecs
	return report, nil
}

// Series 返回底层时间序列
func (c *Collector) Series() *timeseries.Timeseries {
	return c.series
}
