package model

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// RawContent 为上游形态的内容块：可能来自 AI 输出，也可能是旧版本写入的数据。
// 数值字段使用指针以区分“缺失”和“显式为 0”；VideoURLs/VideoBorderColor 为旧版字段。
type RawContent struct {
	Title                string          `json:"title,omitempty"`
	Description          string          `json:"description,omitempty"`
	CTAText              string          `json:"ctaText,omitempty"`
	Features             []string        `json:"features,omitempty"`
	SellingPoints        []string        `json:"sellingPoints,omitempty"`
	Reviews              []RawReview     `json:"reviews,omitempty"`
	Announcements        []Announcement  `json:"announcements,omitempty"`
	AnnouncementInterval *FlexInt        `json:"announcementInterval,omitempty"`
	TopBannerText        string          `json:"topBannerText,omitempty"`
	UrgencyText          string          `json:"urgencyText,omitempty"`
	Price                string          `json:"price,omitempty"`
	OldPrice             string          `json:"oldPrice,omitempty"`
	DiscountLabel        string          `json:"discountLabel,omitempty"`
	GuaranteeText        string          `json:"guaranteeText,omitempty"`
	StockCount           *FlexInt        `json:"stockCount,omitempty"`
	PopupCount           *FlexInt        `json:"popupCount,omitempty"`
	PopupInterval        *FlexInt        `json:"popupInterval,omitempty"`
	SocialProofName      string          `json:"socialProofName,omitempty"`
	SocialProofCount     *FlexInt        `json:"socialProofCount,omitempty"`
	VideoItems           []RawVideoItem  `json:"videoItems,omitempty"`
	VideoURLs            []string        `json:"videoUrls,omitempty"`
	VideoBorderColor     string          `json:"videoBorderColor,omitempty"`
	TimelineConfig       *TimelineConfig `json:"timelineConfig,omitempty"`
	PurchaseFormHTML     string          `json:"purchaseFormHtml,omitempty"`
}

// RawReview 的评分可能是浮点或字符串（AI 输出的 NUMBER 类型）。
type RawReview struct {
	ID      string   `json:"id,omitempty"`
	Author  string   `json:"author,omitempty"`
	Rating  *FlexInt `json:"rating,omitempty"`
	Comment string   `json:"comment,omitempty"`
	Date    string   `json:"date,omitempty"`
}

// RawVideoItem 的播放标志缺失时视为 true。
type RawVideoItem struct {
	URL         string `json:"url"`
	BorderColor string `json:"borderColor,omitempty"`
	AutoPlay    *bool  `json:"autoPlay,omitempty"`
	Loop        *bool  `json:"loop,omitempty"`
	Muted       *bool  `json:"muted,omitempty"`
}

// FlexInt 接受 JSON 整数、浮点（四舍五入）以及数字字符串。
// 无法解析的值（如 "758+"、"tredici"、true）不报错，记为 flexMissing，Valid 为 false，等同缺失。
type FlexInt int

const flexMissing FlexInt = math.MinInt32

// UnmarshalJSON 宽松解析数值；从不返回错误，避免单个字段拖垮整个内容块。
func (n *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			*n = flexMissing
			return nil
		}
		s = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.Abs(f) > math.MaxInt32 {
		*n = flexMissing
		return nil
	}
	*n = FlexInt(math.Round(f))
	return nil
}

// Valid 报告数值是否存在且可用。
func (n *FlexInt) Valid() bool { return n != nil && *n != flexMissing }

// UnmarshalJSON 宽松解析时间线区间：坏字段按 0 处理，整体不是对象时得到零值。
func (c *TimelineConfig) UnmarshalJSON(b []byte) error {
	var aux struct {
		ReadyDaysMin    *FlexInt `json:"readyDaysMin"`
		ReadyDaysMax    *FlexInt `json:"readyDaysMax"`
		DeliveryDaysMin *FlexInt `json:"deliveryDaysMin"`
		DeliveryDaysMax *FlexInt `json:"deliveryDaysMax"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		*c = TimelineConfig{}
		return nil
	}
	*c = TimelineConfig{
		ReadyDaysMin:    aux.ReadyDaysMin.orZero(),
		ReadyDaysMax:    aux.ReadyDaysMax.orZero(),
		DeliveryDaysMin: aux.DeliveryDaysMin.orZero(),
		DeliveryDaysMax: aux.DeliveryDaysMax.orZero(),
	}
	return nil
}

func (n *FlexInt) orZero() int {
	if !n.Valid() {
		return 0
	}
	return int(*n)
}

// IntPtr 便于构造可选数值。
func IntPtr(v int) *FlexInt {
	n := FlexInt(v)
	return &n
}

// BoolPtr 便于构造可选标志。
func BoolPtr(v bool) *bool { return &v }

// RecordUpdate 为按 id 更新时的部分字段；nil 表示不修改。
// Translations 非 nil 时整体替换（不做合并）。
type RecordUpdate struct {
	Slug             *string
	ProductName      *string
	ImageURL         *string
	AdditionalImages *[]string
	BuyLink          *string
	BaseLanguage     *string
	Niche            *string
	TargetAudience   *string
	Tone             *string
	Translations     map[string]ContentBlock
}

// FullUpdate 构造覆盖全部可变字段的更新（编辑器保存时使用）。id 与 createdAt 不可变。
func FullUpdate(r LandingRecord) RecordUpdate {
	images := append([]string(nil), r.AdditionalImages...)
	return RecordUpdate{
		Slug:             &r.Slug,
		ProductName:      &r.ProductName,
		ImageURL:         &r.ImageURL,
		AdditionalImages: &images,
		BuyLink:          &r.BuyLink,
		BaseLanguage:     &r.BaseLanguage,
		Niche:            &r.Niche,
		TargetAudience:   &r.TargetAudience,
		Tone:             &r.Tone,
		Translations:     r.Translations,
	}
}

// Apply 将更新应用到记录副本上。
func (u RecordUpdate) Apply(r LandingRecord) LandingRecord {
	if u.Slug != nil {
		r.Slug = *u.Slug
	}
	if u.ProductName != nil {
		r.ProductName = *u.ProductName
	}
	if u.ImageURL != nil {
		r.ImageURL = *u.ImageURL
	}
	if u.AdditionalImages != nil {
		r.AdditionalImages = append([]string(nil), (*u.AdditionalImages)...)
	}
	if u.BuyLink != nil {
		r.BuyLink = *u.BuyLink
	}
	if u.BaseLanguage != nil {
		r.BaseLanguage = *u.BaseLanguage
	}
	if u.Niche != nil {
		r.Niche = *u.Niche
	}
	if u.TargetAudience != nil {
		r.TargetAudience = *u.TargetAudience
	}
	if u.Tone != nil {
		r.Tone = *u.Tone
	}
	if u.Translations != nil {
		r.Translations = u.Translations
	}
	return r
}

func sortStrings(s []string) { sort.Strings(s) }
