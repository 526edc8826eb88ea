package execution

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"benchmark_agent/internal/event"
	"benchmark_agent/internal/logger"
	"benchmark_agent/internal/plugin"
)

// WorkerCommand 以子进程模式启动本程序时的命令行参数
const WorkerCommand = "plugin-worker"

// 父子进程之间的行协议
const (
	startedLine   = "started"
	stopLine      = "stop"
	resultsPrefix = "results "
)

// 结果行可能携带整段时间序列
const maxResultLine = 16 * 1024 * 1024

type workerPayload struct {
	Items []plugin.ConfigItem `json:"items"`
}

// ProcessStrategy 在独立子进程里执行目标
//
// 子进程重新执行本程序的 plugin-worker 模式并按配置项重建目标。
// stop 信号经 stdin 桥接过去，启动回执和结果经 stdout 传回来，
// 结果最终注入父进程侧的插件实例。
type ProcessStrategy struct {
	target     Target
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	readDone   chan struct{}
	startErr   error
	deliverErr error
	delivered  bool
}

// NewProcessStrategy 构造进程执行载体
func NewProcessStrategy() Strategy {
	return &ProcessStrategy{}
}

// Start 启动子进程并开始桥接信号
func (s *ProcessStrategy) Start(target Target, stop, started *event.Event) {
	s.target = target
	s.readDone = make(chan struct{})

	payload, err := target.Payload()
	if err != nil {
		s.failEarly(err)
		return
	}
	data, err := json.Marshal(workerPayload{Items: payload})
	if err != nil {
		s.failEarly(err)
		return
	}

	cmd := exec.Command(os.Args[0], WorkerCommand)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		s.failEarly(err)
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.failEarly(err)
		return
	}
	if err := cmd.Start(); err != nil {
		s.failEarly(fmt.Errorf("starting worker process: %w", err))
		return
	}
	s.cmd = cmd
	s.stdin = stdin

	if _, err := fmt.Fprintln(stdin, string(data)); err != nil {
		s.startErr = fmt.Errorf("sending payload to worker process: %w", err)
		close(s.readDone)
		return
	}

	go s.bridgeStop(stop)
	go s.readOutput(stdout, started)
}

func (s *ProcessStrategy) failEarly(err error) {
	s.startErr = err
	close(s.readDone)
}

// bridgeStop 把父进程的 stop 信号转成子进程 stdin 上的一行
func (s *ProcessStrategy) bridgeStop(stop *event.Event) {
	stop.Wait(0)
	// 子进程可能已经退出，写失败可以忽略
	_, _ = io.WriteString(s.stdin, stopLine+"\n")
}

func (s *ProcessStrategy) readOutput(stdout io.Reader, started *event.Event) {
	defer close(s.readDone)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxResultLine)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == startedLine:
			if s.target.SignalsStarted() {
				started.Set()
			}
		case strings.HasPrefix(line, resultsPrefix):
			s.deliverErr = s.deliverResults(line[len(resultsPrefix):])
			s.delivered = true
		default:
			logger.Warnf("Unexpected line from worker process: %q", line)
		}
	}
}

func (s *ProcessStrategy) deliverResults(data string) error {
	results := map[string]plugin.Result{}
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		return fmt.Errorf("decoding worker results: %w", err)
	}
	return s.target.Deliver(results)
}

// Join 等待子进程结束
//
// 子进程非零退出或没有交回结果属于基础设施错误，在这里报告。
func (s *ProcessStrategy) Join() error {
	if s.readDone == nil {
		return ErrNotStarted
	}
	<-s.readDone

	if s.startErr != nil {
		if s.cmd != nil {
			_ = s.cmd.Wait()
		}
		return s.startErr
	}
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("worker process failed: %w", err)
	}
	if s.deliverErr != nil {
		return s.deliverErr
	}
	if !s.delivered {
		return errors.New("worker process exited without reporting results")
	}
	return nil
}
