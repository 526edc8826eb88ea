package commandexec

import (
	"time"

	"benchmark_agent/internal/executor"
	"benchmark_agent/internal/plugin"
)

// Params 插件构造参数
type Params struct {
	// Metrics 内联的指标定义，键是指标名
	Metrics map[string]map[string]interface{} `mapstructure:"metrics" optional:"true"`
	// Catalogue 指标目录文件路径
	Catalogue string `mapstructure:"catalogue" optional:"true"`
	// CommandTimeoutSecs 单条命令的执行时限
	CommandTimeoutSecs float64 `mapstructure:"command_timeout_secs" optional:"true"`
}

// Factory 命令执行插件的工厂
type Factory struct{}

// Type 返回插件注册名
func (Factory) Type() string {
	return "CommandExecutor"
}

// Parameters 返回参数结构体
func (Factory) Parameters() interface{} {
	return &Params{CommandTimeoutSecs: 60}
}

// Create 构造插件
func (Factory) Create(params interface{}) (plugin.Plugin, error) {
	p := params.(*Params)

	definitions, err := buildDefinitions(p.Catalogue, p.Metrics)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(p.CommandTimeoutSecs * float64(time.Second))
	shell := executor.New("", timeout)
	return New(definitions, shell.Run), nil
}
