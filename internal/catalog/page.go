package catalog

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"go-landing-studio/internal/fetch"
	"go-landing-studio/internal/rules"
)

// ParsePage 根据选择器预设从商品列表页抽取商品。
// 规则语法：
// - 文本：".name" 或 "."（取当前项文本）
// - 属性："a@href"/"img@src"/"@href"（当前项属性）
// - 回退：使用 "||" 连接多个候选，按先后尝试
func ParsePage(ctx context.Context, cl *fetch.Client, pageURL string, preset rules.Preset) ([]Seed, error) {
	pl := preset.ProductList
	if pl == nil || pl.Item == "" {
		return nil, fmt.Errorf("no product_list rules for %s", pageURL)
	}
	b, _, err := cl.Body(ctx, pageURL, 4<<20)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("parse product page html: %w", err)
	}
	var out []Seed
	doc.Find(pl.Item).Each(func(_ int, s *goquery.Selection) {
		name := strings.Join(strings.Fields(getVal(s, pl.Name)), " ")
		if name == "" {
			return
		}
		out = append(out, Seed{
			Name:        name,
			Description: strings.Join(strings.Fields(getVal(s, pl.Description)), " "),
			ImageURL:    abs(pageURL, getVal(s, pl.Image)),
			Link:        abs(pageURL, getVal(s, pl.Link)),
		})
	})
	return out, nil
}

// getVal 解析表达式并支持使用 "||" 作为回退分隔，例如："img@data-src||img@src"。
func getVal(scope *goquery.Selection, expr string) string {
	for _, p := range strings.Split(expr, "||") {
		if v := getValSingle(scope, strings.TrimSpace(p)); v != "" {
			return v
		}
	}
	return ""
}

// getValSingle 解析单个表达式：文本或属性读取。
func getValSingle(scope *goquery.Selection, expr string) string {
	if expr == "" {
		return ""
	}
	if expr == "." {
		return strings.TrimSpace(scope.Text())
	}
	if at := strings.Index(expr, "@"); at != -1 {
		sel := strings.TrimSpace(expr[:at])
		attr := strings.TrimSpace(expr[at+1:])
		el := scope
		if sel != "" {
			el = scope.Find(sel).First()
		}
		val, _ := el.Attr(attr)
		return strings.TrimSpace(val)
	}
	return strings.TrimSpace(scope.Find(expr).First().Text())
}
