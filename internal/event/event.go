package event

import (
	"sync"
	"time"
)

// Event 跨执行上下文共享的一次性布尔信号
//
// 插件的采集循环通过 Wait 以"距下一次采样的时间"作为超时阻塞，
// 信号一旦置位 Wait 立即返回，因此取消延迟与采样间隔无关。
type Event struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

// New 创建未置位的信号
func New() *Event {
	return &Event{ch: make(chan struct{})}
}

// Set 置位信号并唤醒所有等待者
func (e *Event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.set {
		return
	}
	e.set = true
	close(e.ch)
}

// Clear 复位信号
func (e *Event) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.set {
		return
	}
	e.set = false
	e.ch = make(chan struct{})
}

// IsSet 返回信号是否已置位
func (e *Event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// Wait 阻塞直到信号置位或超时
//
// 信号已置位或在等待期间被置位时返回 true，超时返回 false。
// timeout <= 0 表示无限等待。
func (e *Event) Wait(timeout time.Duration) bool {
	e.mu.Lock()
	ch := e.ch
	set := e.set
	e.mu.Unlock()

	if set {
		return true
	}

	if timeout <= 0 {
		<-ch
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}
