package composer

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-landing-studio/internal/content"
	"go-landing-studio/internal/locale"
	"go-landing-studio/internal/logx"
	"go-landing-studio/internal/model"
)

// Persister 为编辑器保存时使用的记录写入方（由应用控制器实现）。
type Persister interface {
	Add(ctx context.Context, rec model.LandingRecord) error
	Update(ctx context.Context, rec model.LandingRecord) error
}

// NavigateFunc 请求切换逻辑页面。
type NavigateFunc func(path string, params map[string]string)

// Origin 为编辑器的初始化来源。
type Origin int

const (
	FromBlank Origin = iota
	FromRecord
	FromDraft
)

func (o Origin) String() string {
	switch o {
	case FromDraft:
		return "draft"
	case FromRecord:
		return "record"
	default:
		return "blank"
	}
}

// Product 为编辑表单中的产品字段。
type Product struct {
	Name             string   `json:"name"`
	ImageURL         string   `json:"imageUrl"`
	AdditionalImages []string `json:"additionalImages"`
	BuyLink          string   `json:"buyLink"`
	Language         string   `json:"language"`
	Niche            string   `json:"niche,omitempty"`
	TargetAudience   string   `json:"targetAudience,omitempty"`
	Tone             string   `json:"tone,omitempty"`
}

// State 为编辑器的可编辑状态。
type State struct {
	Product Product            `json:"product"`
	Content model.ContentBlock `json:"content"`
	Editing bool               `json:"editing"`
	Origin  Origin             `json:"-"`
}

// Editor 为单个页面的编辑会话。isEditing 在 Open 时确定，之后不再变化。
type Editor struct {
	persister Persister
	navigate  NavigateFunc
	now       func() time.Time

	mu        sync.Mutex
	state     State
	id        string
	createdAt time.Time
}

// Open 按优先级初始化编辑器：槽位中的暂存草稿（读取即清空）→ 传入的已有记录 → 空白模板。
// 前两种路径都会把基础语言的内容块再过一遍默认值补齐。
func Open(slot *DraftSlot, record *model.LandingRecord, p Persister, navigate NavigateFunc) *Editor {
	e := &Editor{persister: p, navigate: navigate, now: time.Now}
	if record != nil {
		e.id = record.ID
		e.createdAt = record.CreatedAt
		e.state.Editing = true
	}
	if d, ok := slot.Take(); ok {
		e.state.Origin = FromDraft
		e.state.Product = productOf(d.Record)
		e.state.Content = draftContent(d)
	} else if record != nil {
		e.state.Origin = FromRecord
		e.state.Product = productOf(*record)
		e.state.Content = recordContent(*record)
	} else {
		e.state.Origin = FromBlank
		e.state.Product = Product{Language: locale.Fallback, AdditionalImages: []string{}}
		e.state.Content = content.Blank(locale.Fallback)
	}
	logx.Debugf("打开编辑器 来源=%s 编辑=%v", e.state.Origin, e.state.Editing)
	return e
}

// SetClock 替换时间源（测试使用）。
func (e *Editor) SetClock(now func() time.Time) { e.now = now }

func productOf(r model.LandingRecord) Product {
	lang := r.BaseLanguage
	if lang == "" {
		lang = locale.Fallback
	}
	return Product{
		Name:             r.ProductName,
		ImageURL:         r.ImageURL,
		AdditionalImages: append([]string{}, r.AdditionalImages...),
		BuyLink:          r.BuyLink,
		Language:         lang,
		Niche:            r.Niche,
		TargetAudience:   r.TargetAudience,
		Tone:             r.Tone,
	}
}

func draftContent(d Draft) model.ContentBlock {
	lang := productOf(d.Record).Language
	if raw, ok := d.Translations[lang]; ok {
		return content.ResolveFor(raw, lang)
	}
	keys := make([]string, 0, len(d.Translations))
	for k := range d.Translations {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return content.Blank(lang)
	}
	slices.Sort(keys)
	return content.ResolveFor(d.Translations[keys[0]], lang)
}

func recordContent(r model.LandingRecord) model.ContentBlock {
	lang := productOf(r).Language
	b, _, ok := r.Content(lang)
	if !ok {
		return content.Blank(lang)
	}
	return content.ResolveFor(content.ToRaw(b), lang)
}

// State 返回当前状态的副本。
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneState(e.state)
}

// SetProduct 更新产品字段；语言变化时同时切换价格货币。
func (e *Editor) SetProduct(p Product) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p.AdditionalImages = append([]string{}, p.AdditionalImages...)
	if p.Language == "" {
		p.Language = e.state.Product.Language
	}
	changed := p.Language != e.state.Product.Language
	e.state.Product = p
	if changed {
		e.state.Content = content.ApplyLocale(e.state.Content, p.Language)
	}
}

// SetLanguage 切换基础语言，并把 price/oldPrice 中的货币符号换成该语言的货币。
func (e *Editor) SetLanguage(tag string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Product.Language = tag
	e.state.Content = content.ApplyLocale(e.state.Content, tag)
}

// SetContent 整体替换内容块。
func (e *Editor) SetContent(b model.ContentBlock) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Content = cloneBlock(b)
}

// AddVideoItem 追加一个视频，播放标志全部开启。
func (e *Editor) AddVideoItem(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Content.VideoItems = append(e.state.Content.VideoItems, model.VideoItem{
		URL:         url,
		BorderColor: content.FallbackBorder,
		AutoPlay:    true,
		Loop:        true,
		Muted:       true,
	})
}

// RemoveVideoItem 删除第 i 个视频；越界时忽略。
func (e *Editor) RemoveVideoItem(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.state.Content.VideoItems) {
		return
	}
	e.state.Content.VideoItems = slices.Delete(e.state.Content.VideoItems, i, i+1)
}

// AddAnnouncement 追加公告；缺少 id 时按当前时间生成。
func (e *Editor) AddAnnouncement(a model.Announcement) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if a.ID == "" {
		a.ID = fmt.Sprintf("ann-%d", e.now().UnixNano())
	}
	e.state.Content.Announcements = append(e.state.Content.Announcements, a)
}

// AddReview 追加评价；评分限制在 1–5，缺少 id 时按当前时间生成。
func (e *Editor) AddReview(r model.Review) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r.ID == "" {
		r.ID = fmt.Sprintf("review-%d", e.now().UnixNano())
	}
	r.Rating = min(5, max(1, r.Rating))
	e.state.Content.Reviews = append(e.state.Content.Reviews, r)
}

// SetTimeline 更新发货时间线。
func (e *Editor) SetTimeline(tl model.TimelineConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Content.TimelineConfig = tl
}

// SetImages 更新主图与图集。
func (e *Editor) SetImages(primary string, additional []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Product.ImageURL = primary
	e.state.Product.AdditionalImages = append([]string{}, additional...)
}

// Save 构造记录并通过 Persister 新建或更新。
// translations 整体替换为 {基础语言: 当前内容}；成功后导航回管理页，
// 失败时返回错误且不修改编辑状态，也不重试。
func (e *Editor) Save(ctx context.Context) (model.LandingRecord, error) {
	e.mu.Lock()
	st := cloneState(e.state)
	id, createdAt := e.id, e.createdAt
	e.mu.Unlock()

	rec := model.LandingRecord{
		ID:               id,
		Slug:             Slug(st.Product.Name),
		ProductName:      st.Product.Name,
		ImageURL:         st.Product.ImageURL,
		AdditionalImages: st.Product.AdditionalImages,
		BuyLink:          st.Product.BuyLink,
		BaseLanguage:     st.Product.Language,
		Niche:            st.Product.Niche,
		TargetAudience:   st.Product.TargetAudience,
		Tone:             st.Product.Tone,
		Translations:     map[string]model.ContentBlock{st.Product.Language: st.Content},
		CreatedAt:        createdAt,
	}
	var err error
	if st.Editing {
		err = e.persister.Update(ctx, rec)
	} else {
		rec.ID = uuid.NewString()
		rec.CreatedAt = e.now().UTC()
		err = e.persister.Add(ctx, rec)
	}
	if err != nil {
		logx.Warnf("保存落地页失败 %s: %v", rec.Slug, err)
		return model.LandingRecord{}, fmt.Errorf("save page: %w", err)
	}
	logx.Infof("已保存落地页 %s (%s)", rec.Slug, rec.ID)
	if e.navigate != nil {
		e.navigate("admin", nil)
	}
	return rec, nil
}

// Slug 把产品名转为小写，空白串替换为 "-"。
func Slug(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}

func cloneState(s State) State {
	s.Product.AdditionalImages = append([]string{}, s.Product.AdditionalImages...)
	s.Content = cloneBlock(s.Content)
	return s
}

func cloneBlock(b model.ContentBlock) model.ContentBlock {
	b.Features = append([]string{}, b.Features...)
	b.SellingPoints = append([]string{}, b.SellingPoints...)
	b.Reviews = append([]model.Review{}, b.Reviews...)
	b.Announcements = append([]model.Announcement{}, b.Announcements...)
	b.VideoItems = append([]model.VideoItem{}, b.VideoItems...)
	return b
}
