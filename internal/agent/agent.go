package agent

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"benchmark_agent/internal/config"
	"benchmark_agent/internal/execution"
	"benchmark_agent/internal/logger"
	"benchmark_agent/internal/plugin"
	"benchmark_agent/internal/plugin/registry"
	"benchmark_agent/internal/report"
	"benchmark_agent/internal/runner"
	"benchmark_agent/internal/sysinfo"
)

// defaultStage 没有配置阶段时跑一个一分钟的基准阶段
var defaultStage = config.StageConfig{Name: "benchmark", DurationSecs: 60}

// Workload 阶段期间运行的负载
//
// 插件在负载前启动、负载后停止，真正的基准程序由外部注入。
// stop 关闭时负载应当尽快收尾返回。
type Workload interface {
	Run(stage string, duration time.Duration, stop <-chan struct{}) error
}

// SleepWorkload 纯监测运行的默认负载，只等待阶段时长
type SleepWorkload struct{}

// Run 等待阶段时长或停止信号
func (SleepWorkload) Run(stage string, duration time.Duration, stop <-chan struct{}) error {
	select {
	case <-time.After(duration):
	case <-stop:
	}
	return nil
}

// Agent 基准监控代理
//
// 一轮运行按配置的阶段顺序执行：每个阶段启动全部插件，按阶段
// 时长采集，停止后归档该阶段的结果，最后把整轮报告发布出去。
type Agent struct {
	config    *config.Config
	runner    *runner.Runner
	sysinfo   *sysinfo.Collector
	publisher report.Publisher
	workload  Workload
	cron      *cron.Cron

	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
	running  bool
}

// New 创建 Agent 实例
func New() (*Agent, error) {
	cfg := config.GetConfig()

	collector, err := sysinfo.NewCollector()
	if err != nil {
		return nil, err
	}

	agent := &Agent{
		config:    cfg,
		sysinfo:   collector,
		publisher: report.NewFilePublisher(cfg.Agent.DataDir),
		workload:  SleepWorkload{},
		stopCh:    make(chan struct{}),
	}

	if cfg.Plugins.File != "" {
		if err := agent.initRunner(); err != nil {
			return nil, err
		}
	}

	return agent, nil
}

// SetWorkload 替换阶段期间运行的负载
func (a *Agent) SetWorkload(workload Workload) {
	a.workload = workload
}

// initRunner 从插件配置文件组装插件运行器
func (a *Agent) initRunner() error {
	data, err := os.ReadFile(a.config.Plugins.File)
	if err != nil {
		return fmt.Errorf("reading plugin configuration: %w", err)
	}
	items, err := plugin.ParseConfig(data)
	if err != nil {
		return err
	}
	provider, err := registry.Provider(a.config.Plugins.RegistryDir)
	if err != nil {
		return err
	}

	a.runner = runner.New(plugin.NewConfigBuilder(items, provider), execution.Options{
		Strategy: a.config.Plugins.Strategy,
		Isolate:  a.config.Plugins.Isolate,
	})
	return a.runner.Initialize()
}

// RunOnce 执行一轮完整的运行并发布报告
func (a *Agent) RunOnce() (*report.Report, error) {
	if !a.mu.TryLock() {
		logger.Warn("Previous run still in progress, skipping")
		return nil, nil
	}
	defer a.mu.Unlock()

	stages := a.config.Run.Stages
	if len(stages) == 0 {
		stages = []config.StageConfig{defaultStage}
	}

	doc := &report.Report{
		AgentName:    a.config.Agent.Name,
		AgentVersion: a.config.Agent.Version,
		StartTime:    time.Now().UTC(),
		Plugins:      map[string]map[string]plugin.Result{},
	}
	if host, err := a.sysinfo.Collect(); err == nil {
		doc.Host = host
	} else {
		logger.Warnf("Could not collect host information: %v", err)
	}

	for _, stage := range stages {
		doc.Stages = append(doc.Stages, stage.Name)
		if err := a.runStage(stage); err != nil {
			return nil, err
		}
		if a.stopped() {
			logger.Warn("Shutdown requested, remaining stages skipped")
			break
		}
	}

	if a.runner != nil {
		doc.Plugins = a.runner.Results()
	}
	doc.EndTime = time.Now().UTC()

	if err := a.publisher.Publish(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// runStage 执行单个阶段
func (a *Agent) runStage(stage config.StageConfig) error {
	logger.Infof("Stage %q started (%.0fs)", stage.Name, stage.DurationSecs)

	monitored := a.runner != nil && a.runner.HasPlugins()
	if monitored {
		if err := a.runner.StartPlugins(); err != nil {
			return err
		}
	}

	duration := time.Duration(stage.DurationSecs * float64(time.Second))
	workloadErr := a.workload.Run(stage.Name, duration, a.stopCh)
	if workloadErr != nil {
		logger.Errorf("Workload failed in stage %q: %v", stage.Name, workloadErr)
	}

	if monitored {
		if err := a.runner.StopPlugins(stage.Name); err != nil {
			return err
		}
	}
	if workloadErr != nil {
		return workloadErr
	}
	logger.Infof("Stage %q finished", stage.Name)
	return nil
}

func (a *Agent) stopped() bool {
	select {
	case <-a.stopCh:
		return true
	default:
		return false
	}
}

// Start 按配置的 cron 表达式周期运行
func (a *Agent) Start() error {
	schedule := a.config.Run.Schedule
	if schedule == "" {
		return fmt.Errorf("run.schedule is not configured")
	}

	a.cron = cron.New()
	_, err := a.cron.AddFunc(schedule, func() {
		if _, err := a.RunOnce(); err != nil {
			logger.Errorf("Scheduled run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid run schedule %q: %w", schedule, err)
	}

	a.cron.Start()
	a.running = true
	logger.Infof("Agent scheduled with %q", schedule)
	return nil
}

// Stop 停止调度并打断进行中的运行
func (a *Agent) Stop() {
	if a.cron != nil {
		a.cron.Stop()
	}
	a.stopOnce.Do(func() { close(a.stopCh) })
	// 等待进行中的一轮收尾
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
	logger.Info("Agent stopped")
}

// IsRunning 返回调度器是否在运行
func (a *Agent) IsRunning() bool {
	return a.running
}
