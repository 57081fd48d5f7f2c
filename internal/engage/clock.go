// 包 engage 实现公开页上的两个纯展示用定时引擎：公告轮播与“刚刚购买”弹窗。
// 引擎不启动自己的 goroutine，全部通过 Clock.AfterFunc 回调驱动；
// 任何状态都不会写回存储。
package engage

import (
	"sort"
	"sync"
	"time"
)

// Timer 为可取消的一次性定时器。
type Timer interface {
	Stop() bool
}

// Clock 抽象时间源，测试中使用 ManualClock。
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock 基于 time.AfterFunc。
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// ManualClock 为手动推进的时钟：Advance 按到期顺序同步触发回调。
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
	fired  int
}

type manualTimer struct {
	c    *ManualClock
	when time.Time
	seq  int
	fn   func()
	done bool
}

// NewManualClock 以给定时刻创建时钟。
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{c: c, when: c.now.Add(d), seq: c.seq, fn: f}
	c.seq++
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance 推进 d，期间到期的回调按 (到期时间, 创建顺序) 依次执行；
// 回调中新建的定时器若在目标时刻之前到期，同样会被触发。
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		next := c.nextDue(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.done = true
		c.now = next.when
		c.fired++
		c.mu.Unlock()
		next.fn()
	}
}

// Pending 返回尚未触发且未取消的定时器数量。
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// Fired 返回累计触发的回调次数。
func (c *ManualClock) Fired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// nextDue 需持有锁；同时清理已结束的定时器。
func (c *ManualClock) nextDue(target time.Time) *manualTimer {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.done {
			live = append(live, t)
		}
	}
	c.timers = live
	if len(live) == 0 {
		return nil
	}
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].when.Equal(live[j].when) {
			return live[i].seq < live[j].seq
		}
		return live[i].when.Before(live[j].when)
	})
	if live[0].when.After(target) {
		return nil
	}
	return live[0]
}
