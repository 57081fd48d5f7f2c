package engage

import (
	"sync"
	"time"
)

// Rotator 公告轮播：索引从 0 开始，每个周期前进 (i+1) mod n；少于 2 条时不调度。
type Rotator struct {
	clock    Clock
	n        int
	interval time.Duration
	onTick   func(int)

	mu      sync.Mutex
	index   int
	timer   Timer
	gen     int
	stopped bool
}

// NewRotator 创建并立即启动轮播；onTick 在每次前进后以新索引调用（可为 nil）。
func NewRotator(clock Clock, n int, interval time.Duration, onTick func(int)) *Rotator {
	r := &Rotator{clock: clock, n: n, interval: interval, onTick: onTick}
	r.mu.Lock()
	r.schedule()
	r.mu.Unlock()
	return r
}

// Index 返回当前索引。
func (r *Rotator) Index() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index
}

// Running 报告是否仍有待触发的周期。
func (r *Rotator) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

// Stop 释放定时器；之后不会再触发任何回调。
func (r *Rotator) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// schedule 需持有锁。
func (r *Rotator) schedule() {
	if r.stopped || r.n < 2 || r.interval <= 0 {
		r.timer = nil
		return
	}
	gen := r.gen
	r.timer = r.clock.AfterFunc(r.interval, func() { r.tick(gen) })
}

func (r *Rotator) tick(gen int) {
	r.mu.Lock()
	if r.stopped || gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.index = (r.index + 1) % r.n
	idx := r.index
	r.schedule()
	fn := r.onTick
	r.mu.Unlock()
	if fn != nil {
		fn(idx)
	}
}
