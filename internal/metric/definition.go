package metric

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"benchmark_agent/internal/stats"
)

// DefaultGranularitySecs 采样间隔的默认对齐粒度
//
// 粒度是执行器级别的常量，相近的间隔（例如 18s 与 20s）会被归并
// 到同一个调度组。
const DefaultGranularitySecs = 10.0

// 构造参数的固定集合，配置中出现集合之外的键属于致命配置错误
var (
	requiredParams = []string{"command", "regex", "unit", "interval_mins"}
	optionalParams = []string{"aggregation", "statistics", "description", "expected-value", "example-output"}
)

// Options 指标定义的全部参数
type Options struct {
	Command       string  `mapstructure:"command"`
	Regex         string  `mapstructure:"regex"`
	Unit          string  `mapstructure:"unit"`
	IntervalMins  float64 `mapstructure:"interval_mins"`
	Aggregation   string  `mapstructure:"aggregation"`
	Statistics    string  `mapstructure:"statistics"`
	Description   string  `mapstructure:"description"`
	ExpectedValue float64 `mapstructure:"expected-value"`
	ExampleOutput string  `mapstructure:"example-output"`

	hasExpectedValue bool
}

// aggregator 将一组提取值聚合为单个数值
type aggregator struct {
	name string
	fn   func([]float64) float64
}

// Definition 描述如何从命令输出中提取并聚合一个数值信号
type Definition struct {
	Name         string
	Command      string
	Unit         string
	IntervalMins float64
	Aggregation  string

	pattern     *regexp.Regexp
	valueIndex  int
	aggregators []aggregator
	options     Options
}

// New 根据原始配置参数构造指标定义
//
// 参数集合、正则与聚合函数名都在构造时校验，
// 配置错误在任何插件启动之前暴露。
func New(name string, params map[string]interface{}, granularitySecs float64) (*Definition, error) {
	if err := checkParams(name, params); err != nil {
		return nil, err
	}

	var options Options
	if err := mapstructure.WeakDecode(params, &options); err != nil {
		return nil, fmt.Errorf("metric %q: %w", name, err)
	}
	_, options.hasExpectedValue = params["expected-value"]

	return NewFromOptions(name, options, granularitySecs)
}

// NewFromOptions 根据已解析的参数构造指标定义
func NewFromOptions(name string, options Options, granularitySecs float64) (*Definition, error) {
	if granularitySecs <= 0 {
		granularitySecs = DefaultGranularitySecs
	}

	interval, err := roundInterval(options.IntervalMins, granularitySecs)
	if err != nil {
		return nil, fmt.Errorf("metric %q: %w", name, err)
	}

	pattern, err := regexp.Compile(options.Regex)
	if err != nil {
		return nil, fmt.Errorf("metric %q: invalid regex: %w", name, err)
	}
	valueIndex := -1
	for i, groupName := range pattern.SubexpNames() {
		if groupName == "value" {
			valueIndex = i
			break
		}
	}
	if valueIndex < 0 {
		return nil, fmt.Errorf("metric %q: regex must contain a capture group named \"value\"", name)
	}

	aggregators, err := parseAggregations(options.Aggregation)
	if err != nil {
		return nil, fmt.Errorf("metric %q: %w", name, err)
	}

	if err := checkStatistics(options.Statistics); err != nil {
		return nil, fmt.Errorf("metric %q: %w", name, err)
	}

	return &Definition{
		Name:         name,
		Command:      strings.TrimSpace(options.Command),
		Unit:         options.Unit,
		IntervalMins: interval,
		Aggregation:  strings.TrimSpace(options.Aggregation),
		pattern:      pattern,
		valueIndex:   valueIndex,
		aggregators:  aggregators,
		options:      options,
	}, nil
}

// checkParams 校验配置键集合：缺失的必选键和多余的键都是错误
func checkParams(name string, params map[string]interface{}) error {
	allowed := make(map[string]bool, len(requiredParams)+len(optionalParams))
	for _, key := range requiredParams {
		allowed[key] = true
	}
	for _, key := range optionalParams {
		allowed[key] = true
	}

	for key := range params {
		if !allowed[key] {
			return fmt.Errorf("metric %q: unexpected parameter %q (required: %v, optional: %v)",
				name, key, requiredParams, optionalParams)
		}
	}
	for _, key := range requiredParams {
		if _, ok := params[key]; !ok {
			return fmt.Errorf("metric %q: missing required parameter %q", name, key)
		}
	}
	return nil
}

// roundInterval 将间隔对齐到配置的粒度，对齐结果永远不为零
func roundInterval(intervalMins, granularitySecs float64) (float64, error) {
	if intervalMins <= 0 {
		return 0, fmt.Errorf("interval_mins must be positive, got %v", intervalMins)
	}
	intervalSecs := intervalMins * 60
	rounded := math.Round(intervalSecs/granularitySecs) * granularitySecs
	if rounded == 0 {
		rounded = granularitySecs
	}
	return rounded / 60, nil
}

// checkStatistics 校验逗号分隔的统计项名列表
//
// 统计项在报告阶段才被计算，写错的名字到那时只会静默变成 NaN，
// 所以和聚合函数一样在构造时校验，目录里的笔误立即暴露。
func checkStatistics(spec string) error {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	for _, name := range strings.Split(spec, ",") {
		name = strings.TrimSpace(name)
		switch name {
		case "min", "max", "mean", "median":
			continue
		}
		if _, err := stats.ParseQuantileName(name); err != nil {
			return fmt.Errorf("invalid statistics name %q", name)
		}
	}
	return nil
}

// parseAggregations 解析逗号分隔的聚合函数名列表
func parseAggregations(spec string) ([]aggregator, error) {
	names := strings.Split(spec, ",")
	aggregators := make([]aggregator, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		agg, err := parseAggregation(name)
		if err != nil {
			return nil, err
		}
		aggregators = append(aggregators, agg)
	}
	return aggregators, nil
}

func parseAggregation(name string) (aggregator, error) {
	switch name {
	case "", "default", "average":
		return aggregator{name: "average", fn: stats.Mean}, nil
	case "sum":
		return aggregator{name: name, fn: stats.Sum}, nil
	case "minimum":
		return aggregator{name: name, fn: stats.Min}, nil
	case "maximum":
		return aggregator{name: name, fn: stats.Max}, nil
	case "count":
		return aggregator{name: name, fn: func(values []float64) float64 {
			return float64(len(values))
		}}, nil
	case "product":
		return aggregator{name: name, fn: stats.Product}, nil
	case "median":
		return aggregator{name: name, fn: stats.Median}, nil
	case "mode":
		return aggregator{name: name, fn: stats.Mode}, nil
	case "standard_deviation":
		return aggregator{name: name, fn: stats.StdDev}, nil
	}

	q, err := stats.ParseQuantileName(name)
	if err != nil {
		return aggregator{}, fmt.Errorf("invalid aggregation function name %q", name)
	}
	return aggregator{name: name, fn: func(values []float64) float64 {
		return stats.Quantile(values, q)
	}}, nil
}

// Parse 从命令输出中提取指标值
//
// 正则的每一处匹配贡献一个 value 捕获组的数值，随后按配置的
// 聚合函数依次聚合。单个聚合函数返回标量，多个返回同序的向量。
// 没有任何匹配时除 count 外全部返回 NaN，调用方依赖 NaN 表示
// "本轮没有数据"而不是中断采集。
func (d *Definition) Parse(commandOutput string) (interface{}, error) {
	var extracted []float64
	for _, match := range d.pattern.FindAllStringSubmatch(commandOutput, -1) {
		value, err := strconv.ParseFloat(match[d.valueIndex], 64)
		if err != nil {
			return nil, fmt.Errorf("metric %q: extracted value %q is not a number", d.Name, match[d.valueIndex])
		}
		extracted = append(extracted, value)
	}

	if len(d.aggregators) == 1 {
		return d.aggregators[0].fn(extracted), nil
	}
	results := make([]float64, len(d.aggregators))
	for i, agg := range d.aggregators {
		results[i] = agg.fn(extracted)
	}
	return results, nil
}

// IntervalSecs 返回对齐后的采样间隔秒数
func (d *Definition) IntervalSecs() float64 {
	return d.IntervalMins * 60
}

// Config 返回可写入报告的参数快照
func (d *Definition) Config() map[string]interface{} {
	return map[string]interface{}{
		"interval_mins": d.IntervalMins,
		"command":       d.Command,
		"regex":         d.options.Regex,
		"unit":          d.Unit,
		"aggregation":   d.Aggregation,
	}
}

// StatisticsNames 返回配置的统计量名列表，未配置时为 nil
func (d *Definition) StatisticsNames() []string {
	if strings.TrimSpace(d.options.Statistics) == "" {
		return nil
	}
	names := strings.Split(d.options.Statistics, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	return names
}

// ExpectedValue 返回目录条目声明的期望值
func (d *Definition) ExpectedValue() (float64, bool) {
	return d.options.ExpectedValue, d.options.hasExpectedValue
}

// ExampleOutput 返回目录条目附带的示例输出
func (d *Definition) ExampleOutput() string {
	return d.options.ExampleOutput
}
