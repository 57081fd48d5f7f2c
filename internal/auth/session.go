package auth

import (
	"context"
	"sync"
)

// Session 持有当前身份（可能为空），并在变化时通知订阅者。
type Session struct {
	svc *Service

	mu       sync.Mutex
	current  *Identity
	token    string
	watchers map[int]func(*Identity)
	nextID   int
}

// NewSession 创建空会话。
func NewSession(svc *Service) *Session {
	return &Session{svc: svc, watchers: make(map[int]func(*Identity))}
}

// Current 返回当前身份副本；未登录为 nil。
func (s *Session) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyIdentity(s.current)
}

// Token 返回当前令牌。
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Watch 立即以当前身份调用 fn，之后每次变化再调用；返回取消订阅函数。
func (s *Session) Watch(fn func(*Identity)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	cur := copyIdentity(s.current)
	s.mu.Unlock()
	fn(cur)
	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// SignIn 登录并广播新身份。
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	id, tok, err := s.svc.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	s.set(&id, tok)
	return nil
}

// Restore 用已有令牌恢复会话（例如 CLI 启动时）。
func (s *Session) Restore(token string) error {
	id, err := s.svc.Verify(token)
	if err != nil {
		return err
	}
	s.set(&id, token)
	return nil
}

// SignOut 清空身份并广播。
func (s *Session) SignOut() { s.set(nil, "") }

func (s *Session) set(id *Identity, token string) {
	s.mu.Lock()
	if sameIdentity(s.current, id) && s.token == token {
		s.mu.Unlock()
		return
	}
	s.current = copyIdentity(id)
	s.token = token
	fns := make([]func(*Identity), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(copyIdentity(id))
	}
}

func copyIdentity(id *Identity) *Identity {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}

func sameIdentity(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
