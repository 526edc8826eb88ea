package execution

import (
	"fmt"

	"benchmark_agent/internal/event"
	"benchmark_agent/internal/plugin"
)

// pluginTarget 把单个插件实例当作工作单元
type pluginTarget struct {
	instance *plugin.Instance
}

// Run 执行插件运行周期，started 由叶子层统一置位
func (t *pluginTarget) Run(stop, _ *event.Event) error {
	t.instance.Start(stop)
	return nil
}

func (t *pluginTarget) SignalsStarted() bool {
	return false
}

func (t *pluginTarget) Payload() ([]plugin.ConfigItem, error) {
	item, err := t.instance.ConfigItem()
	if err != nil {
		return nil, err
	}
	return []plugin.ConfigItem{item}, nil
}

func (t *pluginTarget) Deliver(results map[string]plugin.Result) error {
	result, ok := results[t.instance.Name()]
	if !ok {
		return fmt.Errorf("worker process reported no result for plugin %s", t.instance.Name())
	}
	return t.instance.Deliver(result)
}

// executorTarget 把整个嵌套执行器当作工作单元
type executorTarget struct {
	executor PluginExecutor
}

// Run 在当前执行上下文里跑完嵌套执行器的启动与收尾
func (t *executorTarget) Run(stop, started *event.Event) error {
	return t.executor.StartPlugins(stop, started)
}

func (t *executorTarget) SignalsStarted() bool {
	return true
}

func (t *executorTarget) Payload() ([]plugin.ConfigItem, error) {
	return t.executor.Payload()
}

func (t *executorTarget) Deliver(results map[string]plugin.Result) error {
	return t.executor.Deliver(results)
}
