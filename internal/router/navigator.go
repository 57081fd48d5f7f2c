package router

import "sync"

// Navigator 维护浏览历史；每次导航都经由 Parse 重新计算状态，
// 因此程序导航与直接输入同一 URL 得到的状态一致。
type Navigator struct {
	mu        sync.Mutex
	mode      Mode
	history   []string
	pos       int
	state     State
	navigated bool
	listeners map[int]func(State)
	nextID    int
}

// NewNavigator 以初始 URL 创建导航器（相当于首次加载）。
func NewNavigator(initialURL string, mode Mode) *Navigator {
	if initialURL == "" {
		initialURL = "/"
	}
	return &Navigator{
		mode:      mode,
		history:   []string{initialURL},
		state:     Parse(initialURL, mode),
		listeners: make(map[int]func(State)),
	}
}

// Navigate 压入新 URL（丢弃前进历史）并通知监听者。
func (n *Navigator) Navigate(path string, params map[string]string) {
	target := BuildURL(path, params, n.mode)
	n.mu.Lock()
	n.history = append(n.history[:n.pos+1], target)
	n.pos = len(n.history) - 1
	n.navigated = true
	n.mu.Unlock()
	n.sync()
}

// Replace 替换当前历史项。
func (n *Navigator) Replace(rawURL string) {
	n.mu.Lock()
	n.history[n.pos] = rawURL
	n.navigated = true
	n.mu.Unlock()
	n.sync()
}

// Back 后退一步；已在最早位置时返回 false。
func (n *Navigator) Back() bool {
	n.mu.Lock()
	if n.pos == 0 {
		n.mu.Unlock()
		return false
	}
	n.pos--
	n.navigated = true
	n.mu.Unlock()
	n.sync()
	return true
}

// Forward 前进一步；没有前进历史时返回 false。
func (n *Navigator) Forward() bool {
	n.mu.Lock()
	if n.pos >= len(n.history)-1 {
		n.mu.Unlock()
		return false
	}
	n.pos++
	n.navigated = true
	n.mu.Unlock()
	n.sync()
	return true
}

// Current 返回当前状态副本。
func (n *Navigator) Current() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return copyState(n.state)
}

// URL 返回当前 URL。
func (n *Navigator) URL() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.history[n.pos]
}

// Navigated 报告创建后是否发生过导航（HTTP 层据此决定是否重定向）。
func (n *Navigator) Navigated() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.navigated
}

// OnChange 注册状态变化监听；返回取消函数。
func (n *Navigator) OnChange(fn func(State)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}
}

func (n *Navigator) sync() {
	n.mu.Lock()
	n.state = Parse(n.history[n.pos], n.mode)
	st := n.state
	fns := make([]func(State), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(copyState(st))
	}
}

func copyState(s State) State {
	p := make(map[string]string, len(s.Params))
	for k, v := range s.Params {
		p[k] = v
	}
	return State{Page: s.Page, Params: p}
}
