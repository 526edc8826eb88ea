package commandexec

import (
	"fmt"
	"math"
	"sort"
	"time"

	"benchmark_agent/internal/event"
	"benchmark_agent/internal/logger"
	"benchmark_agent/internal/metric"
	"benchmark_agent/internal/plugin"
	"benchmark_agent/internal/timeseries"
)

// scheduleTolerance 调度比较的浮点容差，秒
const scheduleTolerance = 0.05

// RunCommand 执行一条采集命令并返回完整输出
type RunCommand func(command string) (string, error)

// scheduled 一个指标定义和它的采样序列
type scheduled struct {
	definition *metric.Definition
	series     *timeseries.Timeseries
}

// Plugin 按指标目录周期执行命令并提取数值的插件
//
// 同一批次里引用相同命令的指标共享一次执行。命令失败或者输出
// 解析不出来都记为 NaN，序列里留洞而不是中断采集。
type Plugin struct {
	plugin.Base

	metrics []*scheduled
	run     RunCommand
}

// New 由指标定义构造插件
func New(definitions map[string]*metric.Definition, run RunCommand) *Plugin {
	names := make([]string, 0, len(definitions))
	for name := range definitions {
		names = append(names, name)
	}
	sort.Strings(names)

	metrics := make([]*scheduled, 0, len(names))
	for _, name := range names {
		metrics = append(metrics, &scheduled{
			definition: definitions[name],
			series:     timeseries.New(name),
		})
	}
	return &Plugin{metrics: metrics, run: run}
}

// OnStart 清空上一轮的采样序列
func (p *Plugin) OnStart() error {
	for _, m := range p.metrics {
		m.series.Clear()
	}
	return nil
}

// Run 采集直到 stop 置位
//
// 第一批立即执行全部指标，之后每次只等到最近的执行点，
// 容差内到期的指标归入同一批，相同命令只执行一次。
func (p *Plugin) Run(stop *event.Event) error {
	start := time.Now()
	p.collect(p.metrics)

	for {
		wait, due := p.nextBatch(time.Since(start).Seconds())
		if stop.Wait(wait) {
			return nil
		}
		p.collect(due)
	}
}

// nextBatch 计算下一批的等待时长和到期的指标
func (p *Plugin) nextBatch(elapsedSecs float64) (time.Duration, []*scheduled) {
	minWait := math.Inf(1)
	waits := make([]float64, len(p.metrics))
	for i, m := range p.metrics {
		interval := m.definition.IntervalSecs()
		wait := interval - math.Mod(elapsedSecs, interval)
		waits[i] = wait
		if wait < minWait {
			minWait = wait
		}
	}

	var due []*scheduled
	for i, m := range p.metrics {
		if waits[i]-minWait < scheduleTolerance {
			due = append(due, m)
		}
	}
	return time.Duration(minWait * float64(time.Second)), due
}

// collect 采集一批指标，相同命令在批次内去重
func (p *Plugin) collect(due []*scheduled) {
	outputs := map[string]string{}
	failed := map[string]bool{}
	for _, m := range due {
		command := m.definition.Command
		if _, done := outputs[command]; done || failed[command] {
			continue
		}
		output, err := p.run(command)
		if err != nil {
			logger.Warnf("Metric command %q failed: %v", command, err)
			failed[command] = true
			continue
		}
		outputs[command] = output
	}

	for _, m := range due {
		m.series.Append(p.extract(m, outputs, failed))
	}
}

func (p *Plugin) extract(m *scheduled, outputs map[string]string, failed map[string]bool) interface{} {
	if failed[m.definition.Command] {
		return math.NaN()
	}
	value, err := m.definition.Parse(outputs[m.definition.Command])
	if err != nil {
		logger.Warnf("Metric %s: %v", m.definition.Name, err)
		return math.NaN()
	}
	return value
}

// OnEnd 输出每个指标的序列报告和配置快照
func (p *Plugin) OnEnd() (map[string]interface{}, error) {
	report := map[string]interface{}{}
	for _, m := range p.metrics {
		entry := m.series.Report()
		if names := m.definition.StatisticsNames(); names != nil {
			entry["statistics"] = m.series.Statistics(names)
		}
		for key, value := range m.definition.Config() {
			entry[key] = value
		}
		report[m.definition.Name] = entry
	}
	return report, nil
}

// MetricNames 返回全部指标名，顺序稳定
func (p *Plugin) MetricNames() []string {
	names := make([]string, 0, len(p.metrics))
	for _, m := range p.metrics {
		names = append(names, m.definition.Name)
	}
	return names
}

// buildDefinitions 合并目录文件和内联配置的指标定义
func buildDefinitions(cataloguePath string, inline map[string]map[string]interface{}) (map[string]*metric.Definition, error) {
	entries := metric.Catalogue{}
	if cataloguePath != "" {
		catalogue, err := metric.LoadCatalogue(cataloguePath)
		if err != nil {
			return nil, err
		}
		for name, params := range catalogue {
			entries[name] = params
		}
	}
	for name, params := range inline {
		if _, exists := entries[name]; exists {
			return nil, fmt.Errorf("metric %q is defined both inline and in the catalogue", name)
		}
		entries[name] = params
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no metrics configured")
	}
	return entries.Definitions(metric.DefaultGranularitySecs)
}
