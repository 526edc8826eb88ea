package runner

import (
	"errors"
	"fmt"

	"benchmark_agent/internal/execution"
	"benchmark_agent/internal/logger"
	"benchmark_agent/internal/plugin"
)

var (
	ErrAlreadyInitialized = errors.New("plugin runner is already initialized")
	ErrNotInitialized     = errors.New("plugin runner is not initialized")
	ErrNotRunning         = errors.New("plugins are not running")
	ErrAlreadyRunning     = errors.New("plugins are already running")
	ErrDuplicateStage     = errors.New("plugin already has a result for this stage")
)

// Runner 插件子系统的门面
//
// 聚合插件构造与执行层，按阶段收集结果。结果以插件名和阶段名
// 为键，单个插件的失败只记录不中断，同一阶段出现两份结果才是
// 调用方的时序缺陷。
type Runner struct {
	builder     *plugin.ConfigBuilder
	options     execution.Options
	executor    *execution.RootExecutor
	instances   []*plugin.Instance
	results     map[string]map[string]plugin.Result
	initialized bool
	running     bool
}

// New 构造插件运行器
func New(builder *plugin.ConfigBuilder, options execution.Options) *Runner {
	return &Runner{
		builder: builder,
		options: options,
		results: map[string]map[string]plugin.Result{},
	}
}

// Initialize 构造插件实例并组装执行层，只允许调用一次
func (r *Runner) Initialize() error {
	if r.initialized {
		return ErrAlreadyInitialized
	}

	instances, err := r.builder.Build()
	if err != nil {
		return err
	}
	executor, err := execution.BuildRoot(instances, r.options)
	if err != nil {
		return err
	}

	r.instances = instances
	r.executor = executor
	r.initialized = true
	logger.Infof("Plugin runner initialized with %d plugins", len(instances))
	return nil
}

// HasPlugins 返回配置里是否有插件
func (r *Runner) HasPlugins() bool {
	return r.builder.HasPlugins()
}

// Running 返回插件是否正在运行
func (r *Runner) Running() bool {
	return r.running
}

// StartPlugins 启动全部插件
func (r *Runner) StartPlugins() error {
	if !r.initialized {
		return ErrNotInitialized
	}
	if r.running {
		return ErrAlreadyRunning
	}
	if err := r.executor.StartPlugins(); err != nil {
		return err
	}
	r.running = true
	return nil
}

// StopPlugins 停止全部插件并把本阶段的结果归档
//
// 执行层的基础设施错误向上冒泡，插件自身的失败已经在结果里。
func (r *Runner) StopPlugins(stage string) error {
	if !r.running {
		return ErrNotRunning
	}
	r.running = false

	if err := r.executor.StopPlugins(); err != nil {
		return err
	}
	return r.collectResults(stage)
}

func (r *Runner) collectResults(stage string) error {
	for _, instance := range r.instances {
		result, err := instance.Result()
		if err != nil {
			return err
		}
		if result.IsFailure() {
			logger.Errorf("Plugin %s failed during stage %q: %s",
				instance.Name(), stage, result.ErrorMessage())
		}

		stages, ok := r.results[instance.Name()]
		if !ok {
			stages = map[string]plugin.Result{}
			r.results[instance.Name()] = stages
		}
		if _, exists := stages[stage]; exists {
			return fmt.Errorf("%w: plugin %s, stage %q", ErrDuplicateStage, instance.Name(), stage)
		}
		stages[stage] = result
	}
	return nil
}

// Results 返回按插件名和阶段名组织的全部结果
func (r *Runner) Results() map[string]map[string]plugin.Result {
	return r.results
}
