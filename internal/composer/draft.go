// 包 composer 实现落地页编辑器：三种初始化路径（暂存草稿、已有记录、空白模板）、
// 保存，以及调用生成服务并把结果暂存为草稿交给编辑器。
package composer

import (
	"maps"
	"slices"
	"sync"

	"go-landing-studio/internal/model"
)

// Draft 为 AI 生成后等待编辑器接手的暂存结果。
// Record 的 Translations 不使用，内容以上游形态保存在 Translations 中，由编辑器统一补齐。
type Draft struct {
	Record       model.LandingRecord
	Translations map[string]model.RawContent
}

// DraftSlot 为控制器持有的单个草稿槽位：Take 读取即清空，草稿只会被消费一次。
type DraftSlot struct {
	mu    sync.Mutex
	draft *Draft
}

// Stage 放入草稿，覆盖尚未消费的旧草稿。
func (s *DraftSlot) Stage(d Draft) {
	d = cloneDraft(d)
	s.mu.Lock()
	s.draft = &d
	s.mu.Unlock()
}

// Take 取出并清空草稿。
func (s *DraftSlot) Take() (Draft, bool) {
	if s == nil {
		return Draft{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return Draft{}, false
	}
	d := *s.draft
	s.draft = nil
	return d, true
}

// Peek 查看草稿但不消费。
func (s *DraftSlot) Peek() (Draft, bool) {
	if s == nil {
		return Draft{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return Draft{}, false
	}
	return cloneDraft(*s.draft), true
}

func cloneDraft(d Draft) Draft {
	d.Record.AdditionalImages = slices.Clone(d.Record.AdditionalImages)
	d.Translations = maps.Clone(d.Translations)
	return d
}
