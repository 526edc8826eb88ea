package execution

import (
	"fmt"
	"sync"

	"benchmark_agent/internal/event"
	"benchmark_agent/internal/logger"
	"benchmark_agent/internal/plugin"
)

// PluginExecutor 插件集合的执行层
//
// 执行层可以嵌套：叶子层持有插件实例，组合层把整个下层执行器
// 放进一个额外的执行上下文。只有最顶层把停止的时机留给调用方，
// 其余层在启动后同步收尾自己启动的上下文。
type PluginExecutor interface {
	SetTopmost()
	StartPlugins(stop, started *event.Event) error
	StopPlugins(started *event.Event) error

	// Payload 返回在子进程里重建整个插件集合所需的配置项
	Payload() ([]plugin.ConfigItem, error)
	// Deliver 把子进程收集的结果注入本层的插件实例
	Deliver(results map[string]plugin.Result) error
}

// LeafExecutor 为每个插件实例分配独立执行上下文的叶子层
type LeafExecutor struct {
	instances []*plugin.Instance
	newWorker StrategyFactory
	topmost   bool
	mu        sync.Mutex
	workers   []Strategy
}

// NewLeafExecutor 构造叶子执行层
func NewLeafExecutor(instances []*plugin.Instance, factory StrategyFactory) *LeafExecutor {
	return &LeafExecutor{instances: instances, newWorker: factory}
}

// SetTopmost 把本层标记为最顶层
func (e *LeafExecutor) SetTopmost() {
	e.topmost = true
}

// StartPlugins 为每个插件启动一个执行上下文
//
// 全部启动后置位 started。started 在 stop 之前置位是停止路径的
// 前提，停止方靠它保证不会错过尚未启动的插件。
func (e *LeafExecutor) StartPlugins(stop, started *event.Event) error {
	for _, instance := range e.instances {
		worker := e.newWorker()
		worker.Start(&pluginTarget{instance: instance}, stop, started)
		e.appendWorker(worker)
		logger.Debugf("Started plugin %s", instance.Name())
	}
	started.Set()

	if !e.topmost {
		return e.StopPlugins(started)
	}
	return nil
}

// StopPlugins 等待启动完成，然后回收全部执行上下文
func (e *LeafExecutor) StopPlugins(started *event.Event) error {
	started.Wait(0)

	var errs []string
	for {
		worker := e.popWorker()
		if worker == nil {
			break
		}
		if err := worker.Join(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to stop some plugins: %v", errs)
	}
	return nil
}

func (e *LeafExecutor) appendWorker(worker Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workers = append(e.workers, worker)
}

func (e *LeafExecutor) popWorker() Strategy {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.workers) == 0 {
		return nil
	}
	worker := e.workers[len(e.workers)-1]
	e.workers = e.workers[:len(e.workers)-1]
	return worker
}

// Payload 汇集本层全部插件的配置项
func (e *LeafExecutor) Payload() ([]plugin.ConfigItem, error) {
	items := make([]plugin.ConfigItem, 0, len(e.instances))
	for _, instance := range e.instances {
		item, err := instance.ConfigItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Deliver 按插件名把子进程的结果注入对应实例
func (e *LeafExecutor) Deliver(results map[string]plugin.Result) error {
	for _, instance := range e.instances {
		result, ok := results[instance.Name()]
		if !ok {
			return fmt.Errorf("worker process reported no result for plugin %s", instance.Name())
		}
		if err := instance.Deliver(result); err != nil {
			return err
		}
	}
	return nil
}

// CompositeExecutor 把下层执行器整体放进一个额外执行上下文的组合层
type CompositeExecutor struct {
	base      PluginExecutor
	newWorker StrategyFactory
	topmost   bool
	worker    Strategy
}

// NewCompositeExecutor 构造组合执行层
func NewCompositeExecutor(base PluginExecutor, factory StrategyFactory) *CompositeExecutor {
	return &CompositeExecutor{base: base, newWorker: factory}
}

// SetTopmost 把本层标记为最顶层，下层不是顶层
func (e *CompositeExecutor) SetTopmost() {
	e.topmost = true
}

// StartPlugins 在新的执行上下文里启动下层执行器
func (e *CompositeExecutor) StartPlugins(stop, started *event.Event) error {
	e.worker = e.newWorker()
	e.worker.Start(&executorTarget{executor: e.base}, stop, started)

	if !e.topmost {
		return e.StopPlugins(started)
	}
	return nil
}

// StopPlugins 等待启动完成，然后回收下层的执行上下文
func (e *CompositeExecutor) StopPlugins(started *event.Event) error {
	started.Wait(0)
	if e.worker == nil {
		return ErrNotStarted
	}
	return e.worker.Join()
}

// Payload 透传下层的配置项
func (e *CompositeExecutor) Payload() ([]plugin.ConfigItem, error) {
	return e.base.Payload()
}

// Deliver 透传给下层
func (e *CompositeExecutor) Deliver(results map[string]plugin.Result) error {
	return e.base.Deliver(results)
}

// RootExecutor 执行层的最顶层，唯一持有停止与启动信号的地方
type RootExecutor struct {
	base    PluginExecutor
	stop    *event.Event
	started *event.Event
}

// NewRootExecutor 构造根执行层
func NewRootExecutor(base PluginExecutor) *RootExecutor {
	base.SetTopmost()
	return &RootExecutor{base: base}
}

// StartPlugins 启动全部插件
//
// 每次运行都换一对全新的信号，上一轮置位过的 stop 不会泄漏到
// 新一轮里。
func (r *RootExecutor) StartPlugins() error {
	r.stop = event.New()
	r.started = event.New()
	return r.base.StartPlugins(r.stop, r.started)
}

// StopPlugins 通知全部插件停止并等待它们结束
func (r *RootExecutor) StopPlugins() error {
	if r.stop == nil {
		return ErrNotStarted
	}
	r.stop.Set()
	return r.base.StopPlugins(r.started)
}

// Options 执行层的组装参数
type Options struct {
	// Strategy 叶子层的执行策略，thread 或 process
	Strategy string
	// Isolate 是否把整个插件集合放进一个独立子进程
	Isolate bool
}

// BuildRoot 按配置组装执行层
func BuildRoot(instances []*plugin.Instance, options Options) (*RootExecutor, error) {
	factory, err := FactoryFor(options.Strategy)
	if err != nil {
		return nil, err
	}

	var executor PluginExecutor = NewLeafExecutor(instances, factory)
	if options.Isolate {
		executor = NewCompositeExecutor(executor, NewProcessStrategy)
	}
	return NewRootExecutor(executor), nil
}
