package engage

import (
	"math/rand"
	"slices"
	"sync"
	"time"

	"go-landing-studio/internal/content"
	"go-landing-studio/internal/locale"
	"go-landing-studio/internal/logx"
	"go-landing-studio/internal/model"
)

// EventKind 为推送给页面的事件类型。
type EventKind string

const (
	EventAnnouncement EventKind = "announcement"
	EventPopup        EventKind = "popup"
)

// Event 为一次状态变化。
type Event struct {
	Kind  EventKind   `json:"kind"`
	Index int         `json:"index"`
	Popup *PopupState `json:"popup,omitempty"`
}

// Snapshot 为两个引擎的当前状态。
type Snapshot struct {
	AnnouncementIndex int        `json:"announcementIndex"`
	Popup             PopupState `json:"popup"`
}

type rotationKey struct {
	announcements []model.Announcement
	interval      int
}

func (k rotationKey) equal(o rotationKey) bool {
	return k.interval == o.interval && slices.Equal(k.announcements, o.announcements)
}

type popupKey struct {
	count    int
	interval int
}

// Simulator 管理一个已挂载页面的公告轮播与购买弹窗。
// 两个引擎各自按自己的参数重启，互不影响，也不影响页面其他状态。
type Simulator struct {
	clock Clock
	rng   *rand.Rand
	emit  func(Event)

	mu      sync.Mutex
	rot     *Rotator
	rotKey  rotationKey
	pop     *Popups
	popKey  popupKey
	stopped bool
}

// NewSimulator 按内容块启动两个引擎；emit 在引擎状态变化时调用（可为 nil）。
func NewSimulator(clock Clock, rng *rand.Rand, block model.ContentBlock, tag string, emit func(Event)) *Simulator {
	if clock == nil {
		clock = RealClock{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Simulator{clock: clock, rng: rng, emit: emit}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotKey = keyForRotation(block)
	s.rot = s.startRotator(s.rotKey)
	s.popKey = keyForPopups(block)
	s.pop = NewPopups(clock, rng, poolsFor(tag), block.StockCount, s.popKey.count, seconds(s.popKey.interval), s.emitPopup)
	logx.Debugf("互动模拟启动 announcements=%d popups=%d", len(s.rotKey.announcements), s.popKey.count)
	return s
}

// Apply 以新的内容块更新引擎：只有 (公告列表, 周期) 变化时才重启轮播，
// 只有 (弹窗数量, 周期) 变化时才重新调度弹窗。
func (s *Simulator) Apply(block model.ContentBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if rk := keyForRotation(block); !rk.equal(s.rotKey) {
		s.rot.Stop()
		s.rotKey = rk
		s.rot = s.startRotator(rk)
	}
	if pk := keyForPopups(block); pk != s.popKey {
		s.popKey = pk
		s.pop.Reschedule(pk.count, seconds(pk.interval))
	}
}

// SetLocale 切换弹窗姓名/城市池，不重启任何引擎。
func (s *Simulator) SetLocale(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.pop.SetPools(poolsFor(tag))
	}
}

// Dismiss 手动关闭当前弹窗。
func (s *Simulator) Dismiss() {
	s.mu.Lock()
	p := s.pop
	s.mu.Unlock()
	p.Dismiss()
}

// Snapshot 返回当前状态。
func (s *Simulator) Snapshot() Snapshot {
	s.mu.Lock()
	rot, pop := s.rot, s.pop
	s.mu.Unlock()
	return Snapshot{AnnouncementIndex: rot.Index(), Popup: pop.State()}
}

// Stop 卸载：释放两个引擎的定时器，之后不再触发任何事件。
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.rot.Stop()
	s.pop.Stop()
	logx.Debugf("互动模拟停止")
}

// startRotator 需持有锁。
func (s *Simulator) startRotator(k rotationKey) *Rotator {
	return NewRotator(s.clock, len(k.announcements), seconds(k.interval), func(i int) {
		if s.emit != nil {
			s.emit(Event{Kind: EventAnnouncement, Index: i})
		}
	})
}

func (s *Simulator) emitPopup(st PopupState) {
	if s.emit != nil {
		s.emit(Event{Kind: EventPopup, Popup: &st})
	}
}

func keyForRotation(b model.ContentBlock) rotationKey {
	iv := b.AnnouncementInterval
	if iv <= 0 {
		iv = content.DefaultAnnouncementInterval
	}
	return rotationKey{announcements: slices.Clone(b.Announcements), interval: iv}
}

func keyForPopups(b model.ContentBlock) popupKey {
	iv := b.PopupInterval
	if iv <= 0 {
		iv = content.DefaultPopupInterval
	}
	return popupKey{count: max(0, b.PopupCount), interval: iv}
}

func poolsFor(tag string) Pools {
	l := locale.Lookup(tag)
	return Pools{Names: l.Names, Cities: l.Cities}
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
