package plugin

import (
	"fmt"
	"runtime/debug"

	"benchmark_agent/internal/event"
	"benchmark_agent/internal/logger"
)

// Instance 受监督的插件实例
//
// Start 捕获插件生命周期中的一切错误与 panic 并转换成失败结果，
// 结果通过容量为一的信箱交付，每个运行周期恰好产出一个结果。
type Instance struct {
	name       string
	plugin     Plugin
	config     ConfigItem
	fromConfig bool
	results    chan Result
}

// NewInstance 包装一个插件实例
func NewInstance(name string, p Plugin) *Instance {
	return &Instance{
		name:    name,
		plugin:  p,
		results: make(chan Result, 1),
	}
}

// newConfiguredInstance 包装一个由配置构造出来的插件实例
//
// 保留原始配置项，进程执行策略靠它在子进程里重建插件。
func newConfiguredInstance(name string, p Plugin, item ConfigItem) *Instance {
	instance := NewInstance(name, p)
	instance.config = item
	instance.fromConfig = true
	return instance
}

// Name 返回插件的注册名，结果文档以它为键
func (in *Instance) Name() string {
	return in.name
}

// Plugin 返回被包装的插件
func (in *Instance) Plugin() Plugin {
	return in.plugin
}

// ConfigItem 返回构造该实例的配置项
func (in *Instance) ConfigItem() (ConfigItem, error) {
	if !in.fromConfig {
		return ConfigItem{}, fmt.Errorf("%w: %s", ErrNotSerializable, in.name)
	}
	return in.config, nil
}

// Start 执行一个完整的插件运行周期并交付结果
//
// 生命周期任何一步出错都不会向上冒泡，错误连同堆栈被包进
// 失败结果，调用方通过 Result 观察。
func (in *Instance) Start(stop *event.Event) {
	result := in.execute(stop)
	if result.IsFailure() {
		logger.Errorf("Plugin %s failed: %s", in.name, result.ErrorMessage())
	}
	if err := in.Deliver(result); err != nil {
		logger.Errorf("Plugin %s could not deliver its result: %v", in.name, err)
	}
}

func (in *Instance) execute(stop *event.Event) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			result = FailureResult(err, debug.Stack())
		}
	}()

	if err := in.plugin.OnStart(); err != nil {
		return FailureResult(err, debug.Stack())
	}
	if err := in.plugin.Run(stop); err != nil {
		return FailureResult(err, debug.Stack())
	}
	report, err := in.plugin.OnEnd()
	if err != nil {
		return FailureResult(err, debug.Stack())
	}
	return SuccessResult(report)
}

// Deliver 将结果放入信箱，信箱已占用时报错
func (in *Instance) Deliver(result Result) error {
	select {
	case in.results <- result:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrResultUndelivered, in.name)
	}
}

// Result 取出已交付的结果
//
// 在结果交付之前调用属于调用方的时序缺陷，返回 ErrNoResult。
func (in *Instance) Result() (Result, error) {
	select {
	case result := <-in.results:
		return result, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoResult, in.name)
	}
}
