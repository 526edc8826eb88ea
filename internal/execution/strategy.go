package execution

import (
	"errors"
	"fmt"
	"sync"

	"benchmark_agent/internal/event"
	"benchmark_agent/internal/plugin"
)

// 执行策略名，来自配置
const (
	StrategyThread  = "thread"
	StrategyProcess = "process"
)

var (
	ErrNotStarted      = errors.New("execution worker has not been started")
	ErrUnknownStrategy = errors.New("unknown execution strategy")
)

// Target 执行策略承载的工作单元
//
// 既可以是单个插件实例，也可以是一整个嵌套执行器。
type Target interface {
	// Run 在当前进程内执行工作单元
	Run(stop, started *event.Event) error
	// SignalsStarted 返回 Run 自身是否负责置位 started
	SignalsStarted() bool
	// Payload 返回在子进程里重建工作单元所需的配置项
	Payload() ([]plugin.ConfigItem, error)
	// Deliver 把子进程收集的结果注入本进程的插件实例
	Deliver(results map[string]plugin.Result) error
}

// Strategy 一次性的执行载体
//
// Start 异步执行目标，Join 等待结束并报告基础设施层面的
// 错误。插件自身的失败不在此列，它们已经被包进失败结果。
type Strategy interface {
	Start(target Target, stop, started *event.Event)
	Join() error
}

// StrategyFactory 为每个工作单元构造新的执行载体
type StrategyFactory func() Strategy

// FactoryFor 按策略名返回执行载体工厂
func FactoryFor(name string) (StrategyFactory, error) {
	switch name {
	case "", StrategyThread:
		return NewThreadStrategy, nil
	case StrategyProcess:
		return NewProcessStrategy, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// ThreadStrategy 在本进程的 goroutine 里执行目标
type ThreadStrategy struct {
	mu   sync.Mutex
	done chan struct{}
	err  error
}

// NewThreadStrategy 构造线程执行载体
func NewThreadStrategy() Strategy {
	return &ThreadStrategy{}
}

// Start 在新 goroutine 里执行目标
func (s *ThreadStrategy) Start(target Target, stop, started *event.Event) {
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		defer func() {
			if r := recover(); r != nil {
				s.setErr(fmt.Errorf("execution worker panicked: %v", r))
			}
		}()
		if err := target.Run(stop, started); err != nil {
			s.setErr(err)
		}
	}()
}

func (s *ThreadStrategy) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Join 等待 goroutine 结束，目标执行中的错误在这里重新浮出
func (s *ThreadStrategy) Join() error {
	if s.done == nil {
		return ErrNotStarted
	}
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
