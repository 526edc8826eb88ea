package execution

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"benchmark_agent/internal/event"
	"benchmark_agent/internal/logger"
	"benchmark_agent/internal/plugin"
)

// WorkerBuilder 在子进程里按配置项重建插件实例
type WorkerBuilder func(items []plugin.ConfigItem) ([]*plugin.Instance, error)

// ConfigWorkerBuilder 基于元数据提供者的标准重建方式
func ConfigWorkerBuilder(provider plugin.MetadataProvider) WorkerBuilder {
	return func(items []plugin.ConfigItem) ([]*plugin.Instance, error) {
		return plugin.NewConfigBuilder(items, provider).Build()
	}
}

// RunWorker 子进程模式的主循环
//
// 从 in 读取配置载荷，在本进程里以线程策略执行全部插件，
// 收到 stop 行或 in 关闭后收尾，把结果写回 out。
func RunWorker(in io.Reader, out io.Writer, build WorkerBuilder) error {
	reader := bufio.NewReaderSize(in, 64*1024)
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading worker payload: %w", err)
	}
	var payload workerPayload
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		return fmt.Errorf("decoding worker payload: %w", err)
	}

	instances, err := build(payload.Items)
	if err != nil {
		return err
	}

	stop := event.New()
	started := event.New()
	executor := NewLeafExecutor(instances, NewThreadStrategy)
	executor.SetTopmost()
	if err := executor.StartPlugins(stop, started); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, startedLine); err != nil {
		return err
	}

	// 父进程退出导致的 EOF 等同于 stop，子进程不会成为孤儿
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				stop.Set()
				return
			}
			if line == stopLine+"\n" {
				stop.Set()
				return
			}
			logger.Warnf("Unexpected line from parent process: %q", line)
		}
	}()

	stop.Wait(0)
	if err := executor.StopPlugins(started); err != nil {
		return err
	}

	results := make(map[string]plugin.Result, len(instances))
	for _, instance := range instances {
		result, err := instance.Result()
		if err != nil {
			return err
		}
		results[instance.Name()] = result.Sanitized()
	}
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encoding worker results: %w", err)
	}
	_, err = fmt.Fprintf(out, "%s%s\n", resultsPrefix, data)
	return err
}
