// 包 model 定义落地页的数据模型：记录（LandingRecord）、单语言内容块（ContentBlock）
// 以及上游（AI 生成或旧版持久化数据）可能缺字段的原始内容（RawContent）。
package model

import (
	"strings"
	"time"
)

// LandingRecord 表示一个产品的落地页记录。
// 所有者（user_id）只在持久化时附加，不出现在内存结构中。
type LandingRecord struct {
	ID               string                  `json:"id"`
	Slug             string                  `json:"slug"`
	ProductName      string                  `json:"productName"`
	ImageURL         string                  `json:"imageUrl"`
	AdditionalImages []string                `json:"additionalImages"`
	BuyLink          string                  `json:"buyLink"`
	BaseLanguage     string                  `json:"baseLanguage"`
	Niche            string                  `json:"niche,omitempty"`
	TargetAudience   string                  `json:"targetAudience,omitempty"`
	Tone             string                  `json:"tone,omitempty"`
	Translations     map[string]ContentBlock `json:"translations"`
	CreatedAt        time.Time               `json:"createdAt"`
}

// Content 返回指定语言的内容块；不存在时回退到 baseLanguage，再回退到首个可用语言（按键排序）。
// 记录没有任何翻译时 ok=false，调用方应展示加载/空状态。
func (r LandingRecord) Content(locale string) (ContentBlock, string, bool) {
	if c, ok := r.Translations[locale]; ok && locale != "" {
		return c, locale, true
	}
	if c, ok := r.Translations[r.BaseLanguage]; ok {
		return c, r.BaseLanguage, true
	}
	keys := r.Locales()
	if len(keys) == 0 {
		return ContentBlock{}, "", false
	}
	return r.Translations[keys[0]], keys[0], true
}

// Locales 返回已有翻译的语言列表（有序）。
func (r LandingRecord) Locales() []string {
	out := make([]string, 0, len(r.Translations))
	for k := range r.Translations {
		out = append(out, k)
	}
	sortStrings(out)
	return out
}

// ContentBlock 为渲染就绪的单语言内容，所有字段均已由默认值解析器补齐。
type ContentBlock struct {
	Title                string         `json:"title"`
	Description          string         `json:"description"`
	CTAText              string         `json:"ctaText"`
	Features             []string       `json:"features"`
	SellingPoints        []string       `json:"sellingPoints"`
	Reviews              []Review       `json:"reviews"`
	Announcements        []Announcement `json:"announcements"`
	AnnouncementInterval int            `json:"announcementInterval"`
	TopBannerText        string         `json:"topBannerText,omitempty"`
	UrgencyText          string         `json:"urgencyText,omitempty"`
	Price                string         `json:"price"`
	OldPrice             string         `json:"oldPrice"`
	DiscountLabel        string         `json:"discountLabel"`
	GuaranteeText        string         `json:"guaranteeText,omitempty"`
	StockCount           int            `json:"stockCount"`
	PopupCount           int            `json:"popupCount"`
	PopupInterval        int            `json:"popupInterval"`
	SocialProofName      string         `json:"socialProofName"`
	SocialProofCount     int            `json:"socialProofCount"`
	VideoItems           []VideoItem    `json:"videoItems"`
	TimelineConfig       TimelineConfig `json:"timelineConfig"`
	PurchaseFormHTML     string         `json:"purchaseFormHtml,omitempty"`
}

// Review 为单条评价；Comment 可为空（渲染时使用本地化兜底句）。
type Review struct {
	ID      string `json:"id"`
	Author  string `json:"author"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
	Date    string `json:"date"`
}

// Announcement 为顶部轮播公告条目。
type Announcement struct {
	ID              string `json:"id"`
	Text            string `json:"text"`
	Icon            string `json:"icon"`
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
}

// VideoItem 为解析后的视频条目，播放标志均已确定。
type VideoItem struct {
	URL         string `json:"url"`
	BorderColor string `json:"borderColor,omitempty"`
	AutoPlay    bool   `json:"autoPlay"`
	Loop        bool   `json:"loop"`
	Muted       bool   `json:"muted"`
}

// TimelineConfig 为发货时间线天数区间；min<=max 只是约定，不做强制。
type TimelineConfig struct {
	ReadyDaysMin    int `json:"readyDaysMin"`
	ReadyDaysMax    int `json:"readyDaysMax"`
	DeliveryDaysMin int `json:"deliveryDaysMin"`
	DeliveryDaysMax int `json:"deliveryDaysMax"`
}

// SplitFeature 将 "标题: 正文" 按第一个冒号拆分；没有冒号时整体作为标题。
func SplitFeature(f string) (title, body string) {
	i := strings.Index(f, ":")
	if i < 0 {
		return strings.TrimSpace(f), ""
	}
	return strings.TrimSpace(f[:i]), strings.TrimSpace(f[i+1:])
}

// User 为运营账号；密码只保存 bcrypt 哈希。
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
