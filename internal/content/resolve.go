// 包 content 负责把上游（AI 输出或旧版持久化数据）的部分内容补齐为可直接渲染的内容块。
// 所有函数都是纯函数：不访问网络、不读写存储。
package content

import (
	"fmt"

	"go-landing-studio/internal/locale"
	"go-landing-studio/internal/model"
)

// 数值默认值。
const (
	DefaultStockCount           = 13
	DefaultPopupCount           = 9
	DefaultPopupInterval        = 10
	DefaultAnnouncementInterval = 5
	DefaultSocialProofName      = "Michelle"
	DefaultSocialProofCount     = 758
	DefaultRating               = 5

	// FallbackBorder 为旧版 videoUrls 未给出边框色时使用的渐变。
	FallbackBorder = "linear-gradient(0deg, #fe2d52, #28ffff)"
)

// DefaultTimeline 为发货时间线默认区间。
var DefaultTimeline = model.TimelineConfig{ReadyDaysMin: 1, ReadyDaysMax: 2, DeliveryDaysMin: 7, DeliveryDaysMax: 12}

var demoVideos = []string{
	"https://cdn.shopify.com/videos/c/o/v/0e7bd7ed6340476b9b94ab12a8e5ab12.mp4",
	"https://cdn.shopify.com/videos/c/o/v/d4dfdd955f2840b1b63b223ecc77cafd.mp4",
	"https://cdn.shopify.com/videos/c/o/v/171162a47d1b44f1a042656ad7f85d02.mp4",
}

// DemoVideos 返回三条演示视频（每次返回新切片）。
func DemoVideos() []model.VideoItem {
	out := make([]model.VideoItem, 0, len(demoVideos))
	for _, u := range demoVideos {
		out = append(out, model.VideoItem{URL: u, BorderColor: FallbackBorder, AutoPlay: true, Loop: true, Muted: true})
	}
	return out
}

// DefaultAnnouncements 返回指定语言的两条默认公告。
func DefaultAnnouncements(tag string) []model.Announcement {
	l := locale.Lookup(tag)
	out := make([]model.Announcement, 0, len(l.Announcements))
	for i, a := range l.Announcements {
		out = append(out, model.Announcement{
			ID:              fmt.Sprintf("ann-%d", i+1),
			Text:            a.Text,
			Icon:            a.Icon,
			BackgroundColor: a.BackgroundColor,
			TextColor:       a.TextColor,
		})
	}
	return out
}

// Resolve 使用默认语言（it）的文案补齐内容块。
func Resolve(raw model.RawContent) model.ContentBlock {
	return ResolveFor(raw, locale.Fallback)
}

// ResolveFor 逐字段补齐：缺失的列表变为空列表，缺失或非正的数值取默认值，
// 视频按 videoItems → videoUrls → 演示视频 的顺序回退。
// 价格/按钮等字符串缺失时使用 tag 对应语言的默认文案。
func ResolveFor(raw model.RawContent, tag string) model.ContentBlock {
	l := locale.Lookup(tag)
	sym := locale.Currency(tag)
	b := model.ContentBlock{
		Title:                raw.Title,
		Description:          raw.Description,
		CTAText:              orString(raw.CTAText, l.CTA),
		Features:             nonNil(raw.Features),
		SellingPoints:        nonNil(raw.SellingPoints),
		Reviews:              resolveReviews(raw.Reviews),
		Announcements:        resolveAnnouncements(raw.Announcements, tag),
		AnnouncementInterval: positive(raw.AnnouncementInterval, DefaultAnnouncementInterval),
		TopBannerText:        raw.TopBannerText,
		UrgencyText:          orString(raw.UrgencyText, l.UrgencyText),
		Price:                orString(raw.Price, SwapCurrency(l.DefaultPrice, sym, "")),
		OldPrice:             orString(raw.OldPrice, SwapCurrency(l.DefaultOldPrice, sym, "")),
		DiscountLabel:        orString(raw.DiscountLabel, l.DiscountLabel),
		GuaranteeText:        raw.GuaranteeText,
		StockCount:           positive(raw.StockCount, DefaultStockCount),
		PopupCount:           positive(raw.PopupCount, DefaultPopupCount),
		PopupInterval:        positive(raw.PopupInterval, DefaultPopupInterval),
		SocialProofName:      orString(raw.SocialProofName, DefaultSocialProofName),
		SocialProofCount:     positive(raw.SocialProofCount, DefaultSocialProofCount),
		VideoItems:           resolveVideos(raw),
		TimelineConfig:       resolveTimeline(raw.TimelineConfig),
		PurchaseFormHTML:     raw.PurchaseFormHTML,
	}
	return b
}

// Migrate 为读取边界上的显式迁移：每个语言的原始内容按自身语言补齐。
// 旧版字段（videoUrls 等）不会越过此处。
func Migrate(raw map[string]model.RawContent) map[string]model.ContentBlock {
	out := make(map[string]model.ContentBlock, len(raw))
	for tag, rc := range raw {
		out[tag] = ResolveFor(rc, tag)
	}
	return out
}

// Blank 返回空白模板：默认标题/按钮/价格，空的功能与评价列表，其余取默认值。
func Blank(tag string) model.ContentBlock {
	l := locale.Lookup(tag)
	return ResolveFor(model.RawContent{Title: l.BlankTitle}, tag)
}

func resolveReviews(in []model.RawReview) []model.Review {
	out := make([]model.Review, 0, len(in))
	for i, r := range in {
		rating := DefaultRating
		if r.Rating.Valid() {
			rating = clamp(int(*r.Rating), 1, 5)
		}
		id := r.ID
		if id == "" {
			id = fmt.Sprintf("review-%d", i+1)
		}
		out = append(out, model.Review{ID: id, Author: r.Author, Rating: rating, Comment: r.Comment, Date: r.Date})
	}
	return out
}

func resolveAnnouncements(in []model.Announcement, tag string) []model.Announcement {
	if len(in) == 0 {
		return DefaultAnnouncements(tag)
	}
	out := make([]model.Announcement, len(in))
	copy(out, in)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = fmt.Sprintf("ann-%d", i+1)
		}
	}
	return out
}

func resolveVideos(raw model.RawContent) []model.VideoItem {
	if len(raw.VideoItems) > 0 {
		out := make([]model.VideoItem, 0, len(raw.VideoItems))
		for _, v := range raw.VideoItems {
			out = append(out, model.VideoItem{
				URL:         v.URL,
				BorderColor: v.BorderColor,
				AutoPlay:    flag(v.AutoPlay),
				Loop:        flag(v.Loop),
				Muted:       flag(v.Muted),
			})
		}
		return out
	}
	if len(raw.VideoURLs) > 0 {
		border := orString(raw.VideoBorderColor, FallbackBorder)
		out := make([]model.VideoItem, 0, len(raw.VideoURLs))
		for _, u := range raw.VideoURLs {
			out = append(out, model.VideoItem{URL: u, BorderColor: border, AutoPlay: true, Loop: true, Muted: true})
		}
		return out
	}
	return DemoVideos()
}

func resolveTimeline(in *model.TimelineConfig) model.TimelineConfig {
	if in == nil {
		return DefaultTimeline
	}
	return model.TimelineConfig{
		ReadyDaysMin:    max(in.ReadyDaysMin, 0),
		ReadyDaysMax:    max(in.ReadyDaysMax, 0),
		DeliveryDaysMin: max(in.DeliveryDaysMin, 0),
		DeliveryDaysMax: max(in.DeliveryDaysMax, 0),
	}
}

func positive(v *model.FlexInt, def int) int {
	if !v.Valid() || int(*v) <= 0 {
		return def
	}
	return int(*v)
}

func flag(b *bool) bool {
	if b == nil {
		return true
	}
	return *b
}

func orString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func nonNil(in []string) []string {
	out := make([]string, 0, len(in))
	return append(out, in...)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
