package engage

import (
	"math/rand"
	"sync"
	"time"
)

// HideAfter 为单个弹窗的展示时长。
const HideAfter = 5 * time.Second

// PopupState 为弹窗引擎的可见状态。
type PopupState struct {
	Shown   int    `json:"shown"`
	Visible bool   `json:"visible"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Stock   int    `json:"stock"`
	Done    bool   `json:"done"`
}

// Pools 为随机姓名与城市池。
type Pools struct {
	Names  []string
	Cities []string
}

// Popups 购买弹窗序列：每个周期在 shown < count 时随机选取姓名与城市、显示弹窗、
// 展示库存减 1（下限 1），5 秒后隐藏；达到 count 后不再调度周期触发。
type Popups struct {
	clock    Clock
	rng      *rand.Rand
	onChange func(PopupState)

	mu       sync.Mutex
	count    int
	interval time.Duration
	pools    Pools
	state    PopupState
	tick     Timer
	hide     Timer
	gen      int
	hideSeq  int
	stopped  bool
}

// NewPopups 创建并启动弹窗序列；展示库存从 stock 开始（不小于 1）。
func NewPopups(clock Clock, rng *rand.Rand, pools Pools, stock, count int, interval time.Duration, onChange func(PopupState)) *Popups {
	p := &Popups{
		clock:    clock,
		rng:      rng,
		onChange: onChange,
		count:    count,
		interval: interval,
		pools:    pools,
		state:    PopupState{Stock: max(1, stock)},
	}
	p.mu.Lock()
	p.scheduleTick()
	p.mu.Unlock()
	return p
}

// State 返回当前状态。
func (p *Popups) State() PopupState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Reschedule 以新的数量与周期重新调度；已展示数量与展示库存保持不变。
func (p *Popups) Reschedule(count int, interval time.Duration) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.gen++
	if p.tick != nil {
		p.tick.Stop()
		p.tick = nil
	}
	p.count, p.interval = count, interval
	p.state.Done = false
	p.scheduleTick()
	p.mu.Unlock()
}

// SetPools 切换姓名/城市池（例如语言切换），不影响调度。
func (p *Popups) SetPools(pools Pools) {
	p.mu.Lock()
	p.pools = pools
	p.mu.Unlock()
}

// Dismiss 提前隐藏当前弹窗；不影响计数与调度。
func (p *Popups) Dismiss() {
	p.mu.Lock()
	if !p.state.Visible {
		p.mu.Unlock()
		return
	}
	p.state.Visible = false
	if p.hide != nil {
		p.hide.Stop()
		p.hide = nil
	}
	st := p.state
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// Stop 释放全部定时器；之后不会再触发任何回调。
func (p *Popups) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	p.gen++
	if p.tick != nil {
		p.tick.Stop()
		p.tick = nil
	}
	if p.hide != nil {
		p.hide.Stop()
		p.hide = nil
	}
}

// scheduleTick 需持有锁。
func (p *Popups) scheduleTick() {
	if p.stopped || p.state.Shown >= p.count || p.interval <= 0 {
		p.tick = nil
		p.state.Done = p.state.Shown >= p.count
		return
	}
	gen := p.gen
	p.tick = p.clock.AfterFunc(p.interval, func() { p.fire(gen) })
}

func (p *Popups) fire(gen int) {
	p.mu.Lock()
	if p.stopped || gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.tick = nil
	if p.state.Shown >= p.count {
		p.state.Done = true
		p.mu.Unlock()
		return
	}
	p.state.Name = pick(p.rng, p.pools.Names)
	p.state.City = pick(p.rng, p.pools.Cities)
	p.state.Visible = true
	p.state.Stock = max(1, p.state.Stock-1)
	p.state.Shown++
	if p.hide != nil {
		p.hide.Stop()
	}
	p.hideSeq++
	seq := p.hideSeq
	p.hide = p.clock.AfterFunc(HideAfter, func() { p.hideNow(seq) })
	p.scheduleTick()
	st := p.state
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// hideNow 只处理最近一次弹窗的隐藏；Reschedule 不取消已显示弹窗的隐藏。
func (p *Popups) hideNow(seq int) {
	p.mu.Lock()
	if p.stopped || seq != p.hideSeq || !p.state.Visible {
		p.mu.Unlock()
		return
	}
	p.state.Visible = false
	p.hide = nil
	st := p.state
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

func pick(rng *rand.Rand, pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rng.Intn(len(pool))]
}
