package render

import (
	"encoding/json"
	"html/template"
	"strings"
	"time"

	"go-landing-studio/internal/composer"
	"go-landing-studio/internal/engage"
	"go-landing-studio/internal/generate"
	"go-landing-studio/internal/locale"
	"go-landing-studio/internal/model"
)

// ReviewPage 为每次展示/加载更多的评价条数。
const ReviewPage = 50

// Card 为首页橱窗中的一张产品卡片。
type Card struct {
	ID          string
	Slug        string
	Name        string
	ImageURL    string
	Languages   []string
	Description string
	Price       string
}

// StorefrontView 为首页。
type StorefrontView struct {
	Cards         []Card
	Authenticated bool
}

// NewStorefront 按列表顺序（最新在前）构造卡片。
func NewStorefront(records []model.LandingRecord, authenticated bool) StorefrontView {
	v := StorefrontView{Cards: make([]Card, 0, len(records)), Authenticated: authenticated}
	for _, r := range records {
		c := Card{ID: r.ID, Slug: r.Slug, Name: r.ProductName, ImageURL: r.ImageURL}
		for _, l := range r.Locales() {
			c.Languages = append(c.Languages, short(l))
		}
		if b, ok := r.Translations[r.BaseLanguage]; ok {
			c.Description, c.Price = b.Description, b.Price
		}
		v.Cards = append(v.Cards, c)
	}
	return v
}

func short(tag string) string {
	if len(tag) > 2 {
		return tag[:2]
	}
	return tag
}

// FeatureView 为拆分后的卖点段落，图片在图集中循环。
type FeatureView struct {
	Title   string
	Body    string
	Image   string
	Reverse bool
}

// ReviewView 为单条评价的展示数据。
type ReviewView struct {
	model.Review
	Stars   []bool
	Text    string
	Initial string
}

// PublicView 为公开落地页。Ready=false 时只渲染加载状态（记录没有任何翻译）。
type PublicView struct {
	Ready        bool
	Record       model.LandingRecord
	Lang         string
	Languages    []string
	Content      model.ContentBlock
	L            *locale.Localization
	Gallery      []string
	Announcement *model.Announcement
	StockLine    string
	SocialProof  string
	ReviewCount  int
	Features     []FeatureView
	Videos       []model.VideoItem
	Reviews      []ReviewView
	NextVisible  int
	Timeline     []locale.Step
	Checkout     template.HTML
	BuyLink      string
	Popup        engage.PopupState
}

// NewPublic 构造公开页：语言按 请求语言 → 基础语言 → 首个可用语言 选择；
// snap 为互动模拟器的当前状态；visible 为要展示的评价条数（<=0 时为 ReviewPage）。
func NewPublic(rec model.LandingRecord, requested string, snap engage.Snapshot, visible int, now time.Time) PublicView {
	v := PublicView{Record: rec, Languages: rec.Locales()}
	b, lang, ok := rec.Content(requested)
	v.L = locale.Lookup(lang)
	if !ok {
		v.Lang = rec.BaseLanguage
		v.L = locale.Lookup(rec.BaseLanguage)
		return v
	}
	v.Ready = true
	v.Lang = lang
	v.Content = b

	v.Gallery = append([]string{rec.ImageURL}, rec.AdditionalImages...)
	if n := len(b.Announcements); n > 0 {
		a := b.Announcements[snap.AnnouncementIndex%n]
		v.Announcement = &a
	}
	v.Popup = snap.Popup
	stock := snap.Popup.Stock
	if stock <= 0 {
		stock = max(1, b.StockCount)
	}
	v.StockLine = v.L.StockLine(stock)
	v.SocialProof = v.L.SocialProofLine(b.SocialProofCount)
	v.ReviewCount = len(b.Reviews)

	for i, f := range b.Features {
		title, body := model.SplitFeature(f)
		img := rec.ImageURL
		if n := len(rec.AdditionalImages); n > 0 && rec.AdditionalImages[i%n] != "" {
			img = rec.AdditionalImages[i%n]
		}
		v.Features = append(v.Features, FeatureView{Title: title, Body: body, Image: img, Reverse: i%2 == 1})
	}
	v.Videos = b.VideoItems

	if visible <= 0 {
		visible = ReviewPage
	}
	shown := b.Reviews[:min(visible, len(b.Reviews))]
	for _, r := range shown {
		rv := ReviewView{Review: r, Stars: make([]bool, 5), Text: r.Comment}
		for i := range rv.Stars {
			rv.Stars[i] = i < r.Rating
		}
		if strings.TrimSpace(rv.Text) == "" {
			rv.Text = v.L.ReviewFallback
		}
		if r.Author != "" {
			rv.Initial = string([]rune(r.Author)[:1])
		}
		v.Reviews = append(v.Reviews, rv)
	}
	if visible < len(b.Reviews) {
		v.NextVisible = visible + ReviewPage
	}

	tl := b.TimelineConfig
	v.Timeline = v.L.ShippingSteps(now, locale.Days{
		ReadyMin:    tl.ReadyDaysMin,
		ReadyMax:    tl.ReadyDaysMax,
		DeliveryMin: tl.DeliveryDaysMin,
		DeliveryMax: tl.DeliveryDaysMax,
	})
	v.Checkout = CleanCheckout(b.PurchaseFormHTML)
	v.BuyLink = rec.BuyLink
	if v.BuyLink == "" {
		v.BuyLink = "#"
	}
	return v
}

// AdminView 为管理页：记录列表与 AI 生成表单。
type AdminView struct {
	Records   []model.LandingRecord
	Form      composer.Form
	Languages []string
	Styles    []generate.ImageStyle
	Densities []generate.TextDensity
	Operator  string
	Notice    string
}

// NewAdmin 构造管理页；form 为空值时使用默认表单。
func NewAdmin(records []model.LandingRecord, form *composer.Form, operator, notice string) AdminView {
	f := composer.DefaultForm()
	if form != nil {
		f = *form
	}
	return AdminView{
		Records:   records,
		Form:      f,
		Languages: locale.Languages(),
		Styles:    []generate.ImageStyle{generate.StyleHuman, generate.StyleTech, generate.StyleInfo},
		Densities: []generate.TextDensity{generate.DensityShort, generate.DensityMedium, generate.DensityLong},
		Operator:  operator,
		Notice:    notice,
	}
}

// HasStyle 报告表单是否已选中该风格。
func (v AdminView) HasStyle(s generate.ImageStyle) bool {
	for _, x := range v.Form.ImageStyles {
		if x == s {
			return true
		}
	}
	return false
}

// EditorView 为编辑页；列表字段以 JSON 文本编辑。
type EditorView struct {
	State             composer.State
	ID                string
	Languages         []string
	FeaturesJSON      string
	SellingPointsJSON string
	ReviewsJSON       string
	AnnouncementsJSON string
	VideosJSON        string
	ImagesJSON        string
	Notice            string
}

// NewEditor 构造编辑页；id 为空表示新建。
func NewEditor(st composer.State, id, notice string) EditorView {
	return EditorView{
		State:             st,
		ID:                id,
		Languages:         locale.Languages(),
		FeaturesJSON:      pretty(st.Content.Features),
		SellingPointsJSON: pretty(st.Content.SellingPoints),
		ReviewsJSON:       pretty(st.Content.Reviews),
		AnnouncementsJSON: pretty(st.Content.Announcements),
		VideosJSON:        pretty(st.Content.VideoItems),
		ImagesJSON:        pretty(st.Product.AdditionalImages),
		Notice:            notice,
	}
}

func pretty(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

// AuthView 为登录/注册页。
type AuthView struct {
	Signup bool
	Email  string
	Next   string
	Notice string
}

// NotFoundView 为找不到页面时的提示。
type NotFoundView struct {
	L *locale.Localization
}

// NewNotFound 按语言构造 404 页。
func NewNotFound(tag string) NotFoundView {
	return NotFoundView{L: locale.Lookup(tag)}
}
