package timeseries

import (
	"math"
	"time"

	"benchmark_agent/internal/stats"
)

// 时间戳格式与报告中的 ISO-8601 UTC 字符串保持一致
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// DefaultStatistics 默认的统计项集合
var DefaultStatistics = []string{"min", "q25", "mean", "median", "q75", "q85", "q95", "max"}

// Timeseries 带时间戳的采样值序列
//
// 序列在一次运行期间只追加不修改，并且只由持有它的插件自身的
// 执行上下文写入，因此不需要加锁。
type Timeseries struct {
	name       string
	timestamps []string
	values     []interface{}
}

// New 创建空的时间序列
func New(name string) *Timeseries {
	return &Timeseries{name: name}
}

// Name 返回序列名称
func (t *Timeseries) Name() string {
	return t.name
}

// Append 以当前 UTC 时间戳追加一个采样值
//
// 采样值可以是标量，也可以是多重聚合产生的向量。
func (t *Timeseries) Append(value interface{}) {
	timestamp := time.Now().UTC().Format(timestampLayout)
	t.timestamps = append(t.timestamps, timestamp)
	t.values = append(t.values, value)
}

// Clear 清空序列，插件每个阶段开始时调用
func (t *Timeseries) Clear() {
	t.timestamps = nil
	t.values = nil
}

// Len 返回采样数量
func (t *Timeseries) Len() int {
	return len(t.values)
}

// Last 返回最后一个采样值
func (t *Timeseries) Last() (interface{}, bool) {
	if len(t.values) == 0 {
		return nil, false
	}
	return t.values[len(t.values)-1], true
}

// Values 返回全部采样值
func (t *Timeseries) Values() []interface{} {
	return t.values
}

// Timestamps 返回全部采样时间戳
func (t *Timeseries) Timestamps() []string {
	return t.timestamps
}

// scalars 提取数值标量采样，向量采样不参与统计
func (t *Timeseries) scalars() []float64 {
	scalars := make([]float64, 0, len(t.values))
	for _, v := range t.values {
		switch value := v.(type) {
		case float64:
			scalars = append(scalars, value)
		case int:
			scalars = append(scalars, float64(value))
		}
	}
	return scalars
}

// Statistics 计算统计摘要
//
// 统计项可以是 min、mean、median、max 或 q<0-100> 形式的分位数，
// 传入 nil 使用 DefaultStatistics。NaN 采样在计算前被过滤，
// total_count 与 valid_count 分别记录全部与有效采样数，
// 以便区分"本轮无信号"与"丢弃了部分采样"。
// 空序列返回空的统计对象而不是错误。
func (t *Timeseries) Statistics(names []string) map[string]interface{} {
	if len(t.values) == 0 {
		return map[string]interface{}{}
	}
	if names == nil {
		names = DefaultStatistics
	}

	scalars := t.scalars()
	valid := stats.DropNaN(scalars)

	statistics := map[string]interface{}{
		"total_count": len(t.values),
		"valid_count": len(valid),
	}
	for _, name := range names {
		statistics[name] = calculate(name, valid)
	}
	return statistics
}

func calculate(name string, values []float64) float64 {
	switch name {
	case "min":
		return stats.Min(values)
	case "max":
		return stats.Max(values)
	case "mean":
		return stats.Mean(values)
	case "median":
		return stats.Median(values)
	default:
		q, err := stats.ParseQuantileName(name)
		if err != nil {
			return math.NaN()
		}
		return stats.Quantile(values, q)
	}
}

// Report 生成序列报告
func (t *Timeseries) Report() map[string]interface{} {
	values := t.values
	if values == nil {
		values = []interface{}{}
	}
	report := map[string]interface{}{
		"values":     values,
		"statistics": t.Statistics(nil),
	}
	if len(t.timestamps) > 0 {
		report["start_time"] = t.timestamps[0]
		report["end_time"] = t.timestamps[len(t.timestamps)-1]
	}
	return report
}
