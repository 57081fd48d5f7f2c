// 包 catalog 从商店订阅或商品列表页导入商品种子，供批量生成落地页使用：
// - feed：gofeed 解析 RSS/Atom/JSON Feed，失败时自动发现订阅地址
// - page：按 rules.yaml 预设的 CSS 选择器解析列表页
package catalog

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"go-landing-studio/internal/config"
	"go-landing-studio/internal/fetch"
	"go-landing-studio/internal/logx"
	"go-landing-studio/internal/rules"
)

// Seed 为一个待生成落地页的商品。
type Seed struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Link        string `json:"link"`
	Source      string `json:"source"`
}

// Importer 持有 HTTP 客户端与解析规则。
type Importer struct {
	fetch       *fetch.Client
	rules       *rules.Rules
	concurrency int
	// MaxPerSource 为每个来源最多导入的商品数，0 表示不限制。
	MaxPerSource int
}

// New 创建 Importer；rl 可为 nil（page 来源将被跳过）。
func New(cl *fetch.Client, rl *rules.Rules, concurrency int) *Importer {
	return &Importer{fetch: cl, rules: rl, concurrency: max(1, concurrency)}
}

// Import 并发解析全部来源，按来源顺序合并并按链接去重。单个来源失败只记录日志。
func (im *Importer) Import(ctx context.Context, sources []config.Source) []Seed {
	results := make([][]Seed, len(sources))
	sem := make(chan struct{}, im.concurrency)
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			seeds, err := im.importOne(ctx, src)
			if err != nil {
				logx.Warnf("导入商品来源失败：%s 错误=%v", src.URL, err)
				return
			}
			logx.Infof("[%s] 解析到 %d 个商品", hostOf(src.URL), len(seeds))
			results[i] = seeds
		}()
	}
	wg.Wait()

	var out []Seed
	for _, r := range results {
		out = mergeDedup(out, r)
	}
	if len(out) == 0 {
		logx.Warnf("没有从任何来源导入到商品")
	}
	return out
}

func (im *Importer) importOne(ctx context.Context, src config.Source) ([]Seed, error) {
	var (
		seeds []Seed
		err   error
	)
	switch src.Type {
	case "page":
		var preset rules.Preset
		if p, ok := im.rules.GetPreset(src.Theme); ok {
			preset = p
		}
		seeds, err = ParsePage(ctx, im.fetch, src.URL, preset)
	default:
		seeds, err = im.feed(ctx, src.URL)
	}
	if err != nil {
		return nil, err
	}
	for i := range seeds {
		seeds[i].Source = src.URL
	}
	if im.MaxPerSource > 0 && len(seeds) > im.MaxPerSource {
		seeds = seeds[:im.MaxPerSource]
	}
	return seeds, nil
}

// feed 先把地址当作订阅解析，失败时再尝试自动发现。
func (im *Importer) feed(ctx context.Context, site string) ([]Seed, error) {
	seeds, err := ParseFeed(ctx, im.fetch, site)
	if err == nil {
		return seeds, nil
	}
	logx.Debugf("直接解析订阅失败，尝试发现：%s 错误=%v", site, err)
	feedURL, derr := DiscoverFeed(ctx, im.fetch, site)
	if derr != nil {
		return nil, derr
	}
	return ParseFeed(ctx, im.fetch, feedURL)
}

// mergeDedup 合并两个切片并按 link 去重（无链接时按名称），保留先出现者。
func mergeDedup(base, add []Seed) []Seed {
	seen := make(map[string]bool, len(base)+len(add))
	out := make([]Seed, 0, len(base)+len(add))
	for _, list := range [][]Seed{base, add} {
		for _, s := range list {
			k := s.Link
			if k == "" {
				k = "name:" + strings.ToLower(s.Name)
			}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, s)
		}
	}
	return out
}

// hostOf 提取链接的主机名，失败时做字符串兜底，便于日志定位。
func hostOf(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return u.Host
	}
	s := raw
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if j := strings.IndexAny(s, "/?#"); j >= 0 {
		s = s[:j]
	}
	return s
}

// abs 将相对链接转换为绝对 URL。
func abs(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ref
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	bu, err := url.Parse(base)
	if err != nil {
		return ref
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return bu.ResolveReference(ru).String()
}
