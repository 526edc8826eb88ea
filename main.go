package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"benchmark_agent/internal/agent"
	"benchmark_agent/internal/config"
	"benchmark_agent/internal/execution"
	"benchmark_agent/internal/logger"
	"benchmark_agent/internal/plugin/registry"
)

func main() {
	// 进程执行策略重新执行本程序，worker 模式不走常规启动
	if len(os.Args) > 1 && os.Args[1] == execution.WorkerCommand {
		runWorker()
		return
	}

	// 初始化配置
	if err := config.Init(); err != nil {
		logrus.Fatalf("Failed to initialize config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(); err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Info("Benchmark Agent starting...")

	a, err := agent.New()
	if err != nil {
		logger.Fatalf("Failed to create agent: %v", err)
	}

	// 没有配置调度时只跑一轮
	if config.GetConfig().Run.Schedule == "" {
		if _, err := a.RunOnce(); err != nil {
			logger.Fatalf("Run failed: %v", err)
		}
		logger.Info("Benchmark Agent finished")
		return
	}

	if err := a.Start(); err != nil {
		logger.Fatalf("Failed to start agent: %v", err)
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down Benchmark Agent...")
	a.Stop()
	logger.Info("Benchmark Agent stopped")
}

// runWorker 子进程模式：stdin 收配置和停止信号，stdout 回结果
func runWorker() {
	provider, err := registry.Provider(os.Getenv("BENCHMARK_AGENT_PLUGINS_REGISTRY_DIR"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := execution.RunWorker(os.Stdin, os.Stdout, execution.ConfigWorkerBuilder(provider)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
