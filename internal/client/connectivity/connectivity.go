// Package connectivity 维护会话的在线/离线模式。
//
// 模式只由 SyncProtocol 推进：请求超时或不可达时降级，下一次定时同步成功时恢复。
package connectivity

import (
	"sync"
	"time"
)

type Mode uint8

const (
	Online Mode = iota
	Offline
)

func (m Mode) String() string {
	if m == Offline {
		return "offline"
	}
	return "online"
}

type Tracker struct {
	mu        sync.Mutex
	mode      Mode
	since     time.Time
	lastErr   error
	clock     func() time.Time
	observers []func(from, to Mode)
}

func NewTracker() *Tracker {
	return &Tracker{mode: Online, since: time.Now(), clock: time.Now}
}

func (t *Tracker) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

func (t *Tracker) Online() bool {
	return t.Mode() == Online
}

// Since 返回进入当前模式的时间。
func (t *Tracker) Since() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.since
}

// LastError 是最近一次导致降级的错误。
func (t *Tracker) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Observe 注册模式切换回调，回调在锁外按注册顺序执行。
func (t *Tracker) Observe(fn func(from, to Mode)) {
	t.mu.Lock()
	t.observers = append(t.observers, fn)
	t.mu.Unlock()
}

// MarkOnline 返回是否发生了切换。
func (t *Tracker) MarkOnline() bool {
	return t.set(Online, nil)
}

func (t *Tracker) MarkOffline(cause error) bool {
	return t.set(Offline, cause)
}

func (t *Tracker) set(next Mode, cause error) bool {
	t.mu.Lock()
	if cause != nil {
		t.lastErr = cause
	}
	if t.mode == next {
		t.mu.Unlock()
		return false
	}
	from := t.mode
	t.mode = next
	t.since = t.clock()
	observers := append([]func(from, to Mode){}, t.observers...)
	t.mu.Unlock()

	for _, fn := range observers {
		fn(from, next)
	}
	return true
}
