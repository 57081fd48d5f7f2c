// 包 locale 提供静态本地化表：每种语言的文案模板、弹窗用的姓名/城市池、货币符号，
// 以及基于 golang.org/x/text 的语言匹配与数字格式化。
// 文案以 YAML 形式内嵌（locales/*.yaml），启动时一次性加载。
package locale

import (
	"embed"
	"fmt"
	"io/fs"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Fallback 为找不到匹配语言时使用的默认语言。
const Fallback = "it"

//go:embed locales/*.yaml
var localesFS embed.FS

// Localization 为单个语言的全部静态文案。
type Localization struct {
	Tag                  string             `yaml:"tag"`
	Names                []string           `yaml:"names"`
	Cities               []string           `yaml:"cities"`
	ReviewerNames        []string           `yaml:"reviewer_names"`
	PurchaseSuffix       string             `yaml:"purchase_suffix"`
	StockText            string             `yaml:"stock_text"`
	VerifiedText         string             `yaml:"verified_text"`
	SecureText           string             `yaml:"secure_text"`
	ReturnText           string             `yaml:"return_text"`
	LoadMoreText         string             `yaml:"load_more_text"`
	SocialProofPurchased string             `yaml:"social_proof_purchased"`
	ReviewFallback       string             `yaml:"review_fallback"`
	ReviewsLabel         string             `yaml:"reviews_label"`
	BuyNow               string             `yaml:"buy_now"`
	CTA                  string             `yaml:"cta"`
	UrgencyText          string             `yaml:"urgency_text"`
	DiscountLabel        string             `yaml:"discount_label"`
	BlankTitle           string             `yaml:"blank_title"`
	NotFound             string             `yaml:"not_found"`
	BackHome             string             `yaml:"back_home"`
	Loading              string             `yaml:"loading"`
	Announcements        []AnnouncementText `yaml:"announcements"`
	Timeline             TimelineLabels     `yaml:"timeline"`
	Months               []string           `yaml:"months"`
	Ordinals             bool               `yaml:"ordinals"`
	DateLayout           string             `yaml:"date_layout"`
	DefaultPrice         string             `yaml:"default_price"`
	DefaultOldPrice      string             `yaml:"default_old_price"`
}

// AnnouncementText 为默认公告模板。
type AnnouncementText struct {
	Text            string `yaml:"text"`
	Icon            string `yaml:"icon"`
	BackgroundColor string `yaml:"background_color"`
	TextColor       string `yaml:"text_color"`
}

// TimelineLabels 为发货时间线三个节点的标签。
type TimelineLabels struct {
	Ordered   string `yaml:"ordered"`
	Ready     string `yaml:"ready"`
	Delivered string `yaml:"delivered"`
}

// 货币符号表：覆盖编辑器可选的全部语言（含无文案表的 el/pl）。
var currencies = map[string]string{
	"it":    "€",
	"en-GB": "£",
	"en-US": "$",
	"fr":    "€",
	"es":    "€",
	"el":    "€",
	"pl":    "zł",
	"en":    "$",
}

// Symbols 返回全部已知货币符号（用于切换语言时的替换），长的在前。
func Symbols() []string {
	return []string{"zł", "€", "£", "$"}
}

// Currency 返回语言对应的货币符号，未知语言回退为 "€"。
func Currency(tag string) string {
	if s, ok := currencies[tag]; ok {
		return s
	}
	return "€"
}

// Languages 返回编辑器支持的语言标签（顺序固定）。
func Languages() []string {
	return []string{"it", "en", "en-GB", "en-US", "el", "pl", "fr", "es"}
}

var (
	loadOnce sync.Once
	table    map[string]*Localization
	loadErr  error
)

// Load 解析内嵌 YAML；重复调用返回同一张表。
func Load() (map[string]*Localization, error) {
	loadOnce.Do(func() {
		table, loadErr = loadFS(localesFS)
	})
	return table, loadErr
}

func loadFS(fsys fs.FS) (map[string]*Localization, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locales: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no locale files")
	}
	out := make(map[string]*Localization, len(paths))
	for _, p := range paths {
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", p, err)
		}
		var l Localization
		if err := yaml.Unmarshal(b, &l); err != nil {
			return nil, fmt.Errorf("unmarshal locale %s: %w", p, err)
		}
		if l.Tag == "" {
			return nil, fmt.Errorf("locale %s: missing tag", p)
		}
		if len(l.Names) == 0 || len(l.Cities) == 0 {
			return nil, fmt.Errorf("locale %s: empty name/city pool", p)
		}
		if len(l.Months) != 12 {
			return nil, fmt.Errorf("locale %s: want 12 months, got %d", p, len(l.Months))
		}
		out[l.Tag] = &l
	}
	if _, ok := out[Fallback]; !ok {
		return nil, fmt.Errorf("fallback locale %q missing", Fallback)
	}
	return out, nil
}

// Lookup 查找语言文案：精确匹配 → en* 归到 en → 基础语言 → 默认 it。
// 内嵌表损坏属于构建错误，此处直接 panic。
func Lookup(tag string) *Localization {
	t, err := Load()
	if err != nil {
		panic(fmt.Sprintf("locale table: %v", err))
	}
	if l, ok := t[tag]; ok {
		return l
	}
	if strings.HasPrefix(strings.ToLower(tag), "en") {
		return t["en"]
	}
	if parsed, err := language.Parse(tag); err == nil {
		base, _ := parsed.Base()
		if l, ok := t[base.String()]; ok {
			return l
		}
	}
	return t[Fallback]
}

// Available 返回本地化表中的语言（有序）。
func Available() []string {
	t, _ := Load()
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Match 根据 Accept-Language 从候选语言中挑选最合适的一个；无法匹配时返回空串。
func Match(acceptLanguage string, available []string) string {
	if len(available) == 0 || strings.TrimSpace(acceptLanguage) == "" {
		return ""
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return ""
	}
	tags := make([]language.Tag, 0, len(available))
	for _, a := range available {
		tags = append(tags, language.Make(a))
	}
	_, idx, conf := language.NewMatcher(tags).Match(prefs...)
	if conf == language.No {
		return ""
	}
	return available[idx]
}

// FormatCount 按语言习惯格式化整数（千位分隔符等）。
func FormatCount(tag string, n int) string {
	return message.NewPrinter(language.Make(tag)).Sprintf("%d", n)
}

// Pick 从池中均匀随机选择一个元素；空池返回空串。
func Pick(rng *rand.Rand, pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rng.Intn(len(pool))]
}

// FillerReviewer 生成 "<名字> <字母>." 形式的评价作者名。
func (l *Localization) FillerReviewer(rng *rand.Rand) string {
	pool := l.ReviewerNames
	if len(pool) == 0 {
		pool = l.Names
	}
	return fmt.Sprintf("%s %c.", Pick(rng, pool), rune('A'+rng.Intn(26)))
}

// StockLine 将库存数量代入模板。
func (l *Localization) StockLine(stock int) string {
	return strings.ReplaceAll(l.StockText, "{x}", fmt.Sprint(stock))
}

// SocialProofLine 返回 "{count}" 替换后的文案（数字按语言格式化）。
func (l *Localization) SocialProofLine(count int) string {
	return strings.ReplaceAll(l.SocialProofPurchased, "{count}", FormatCount(l.Tag, count))
}
