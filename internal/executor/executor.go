package executor

import (
	"context"
	"os/exec"
	"time"

	"benchmark_agent/internal/logger"
)

// Result 一次命令执行的结果
type Result struct {
	Command   string    `json:"command"`
	Success   bool      `json:"success"`
	ExitCode  int       `json:"exit_code"`
	Output    string    `json:"output"`
	Error     string    `json:"error"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"`
}

// Executor 采集命令的执行器
//
// 指标采集命令每个周期都会跑一遍，输出和诊断信息都留在结果里，
// 失败与否由调用方决定如何处理。
type Executor struct {
	workDir string
	timeout time.Duration
}

// New 创建执行器，timeout 为零表示不限时
func New(workDir string, timeout time.Duration) *Executor {
	return &Executor{workDir: workDir, timeout: timeout}
}

// Execute 通过 shell 执行一条命令并捕获全部输出
func (e *Executor) Execute(command string) *Result {
	result := &Result{
		Command:   command,
		StartTime: time.Now(),
	}

	ctx := context.Background()
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	if e.workDir != "" {
		cmd.Dir = e.workDir
	}

	output, err := cmd.CombinedOutput()
	result.Output = string(output)
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime).Seconds()

	if err != nil {
		result.Success = false
		result.Error = err.Error()
		if cmd.ProcessState != nil {
			result.ExitCode = cmd.ProcessState.ExitCode()
		}
		logger.Debugf("Command %q failed after %.3fs: %v", command, result.Duration, err)
	} else {
		result.Success = true
		result.ExitCode = 0
		logger.Debugf("Command %q completed in %.3fs", command, result.Duration)
	}

	return result
}

// Run 执行命令并以 error 形式报告失败
func (e *Executor) Run(command string) (string, error) {
	result := e.Execute(command)
	if !result.Success {
		return result.Output, &CommandError{Result: result}
	}
	return result.Output, nil
}

// CommandError 携带完整执行结果的命令失败
type CommandError struct {
	Result *Result
}

func (e *CommandError) Error() string {
	return "command " + e.Result.Command + " failed: " + e.Result.Error
}
