package content

import (
	"strings"

	"go-landing-studio/internal/locale"
	"go-landing-studio/internal/model"
)

// SwapCurrency 把字符串中所有已知货币符号替换为 symbol；结果为空白时返回 fallback。
func SwapCurrency(value, symbol, fallback string) string {
	pairs := make([]string, 0, 8)
	for _, s := range locale.Symbols() {
		if s != symbol {
			pairs = append(pairs, s, symbol)
		}
	}
	out := strings.NewReplacer(pairs...).Replace(value)
	if strings.TrimSpace(out) == "" {
		return fallback
	}
	return out
}

// ApplyLocale 切换语言时替换 price/oldPrice 的货币符号；为空时使用该语言的默认价格。
func ApplyLocale(b model.ContentBlock, tag string) model.ContentBlock {
	l := locale.Lookup(tag)
	sym := locale.Currency(tag)
	b.Price = SwapCurrency(b.Price, sym, SwapCurrency(l.DefaultPrice, sym, ""))
	b.OldPrice = SwapCurrency(b.OldPrice, sym, SwapCurrency(l.DefaultOldPrice, sym, ""))
	return b
}

// ToRaw 把已补齐的内容块转回上游形态（编辑表单与 AI 结果共用一条补齐路径）。
func ToRaw(b model.ContentBlock) model.RawContent {
	reviews := make([]model.RawReview, 0, len(b.Reviews))
	for _, r := range b.Reviews {
		reviews = append(reviews, model.RawReview{ID: r.ID, Author: r.Author, Rating: model.IntPtr(r.Rating), Comment: r.Comment, Date: r.Date})
	}
	videos := make([]model.RawVideoItem, 0, len(b.VideoItems))
	for _, v := range b.VideoItems {
		videos = append(videos, model.RawVideoItem{
			URL:         v.URL,
			BorderColor: v.BorderColor,
			AutoPlay:    model.BoolPtr(v.AutoPlay),
			Loop:        model.BoolPtr(v.Loop),
			Muted:       model.BoolPtr(v.Muted),
		})
	}
	tl := b.TimelineConfig
	return model.RawContent{
		Title:                b.Title,
		Description:          b.Description,
		CTAText:              b.CTAText,
		Features:             append([]string(nil), b.Features...),
		SellingPoints:        append([]string(nil), b.SellingPoints...),
		Reviews:              reviews,
		Announcements:        append([]model.Announcement(nil), b.Announcements...),
		AnnouncementInterval: model.IntPtr(b.AnnouncementInterval),
		TopBannerText:        b.TopBannerText,
		UrgencyText:          b.UrgencyText,
		Price:                b.Price,
		OldPrice:             b.OldPrice,
		DiscountLabel:        b.DiscountLabel,
		GuaranteeText:        b.GuaranteeText,
		StockCount:           model.IntPtr(b.StockCount),
		PopupCount:           model.IntPtr(b.PopupCount),
		PopupInterval:        model.IntPtr(b.PopupInterval),
		SocialProofName:      b.SocialProofName,
		SocialProofCount:     model.IntPtr(b.SocialProofCount),
		VideoItems:           videos,
		TimelineConfig:       &tl,
		PurchaseFormHTML:     b.PurchaseFormHTML,
	}
}
