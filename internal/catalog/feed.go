package catalog

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"go-landing-studio/internal/fetch"
	"go-landing-studio/internal/logx"
)

// ParseFeed 抓取并解析商品订阅，每个条目转为一个 Seed。
func ParseFeed(ctx context.Context, cl *fetch.Client, feedURL string) ([]Seed, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 25*time.Second)
	defer cancel()
	// gofeed 不直接接收自定义 http.Client，因此先用自定义客户端抓取后再交给 gofeed 解析
	b, _, err := cl.Body(reqCtx, feedURL, 8<<20)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	seeds := make([]Seed, 0, len(feed.Items))
	for _, it := range feed.Items {
		name := strings.TrimSpace(it.Title)
		if name == "" {
			continue
		}
		body := it.Content
		if strings.TrimSpace(body) == "" {
			body = it.Description
		}
		seeds = append(seeds, Seed{
			Name:        name,
			Description: TextOf(body),
			ImageURL:    abs(feedURL, itemImage(it, body)),
			Link:        abs(feedURL, strings.TrimSpace(it.Link)),
		})
	}
	return seeds, nil
}

// itemImage 依次取条目图片、图片类附件、正文中的第一张 <img>。
func itemImage(it *gofeed.Item, body string) string {
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	for _, e := range it.Enclosures {
		if e != nil && strings.HasPrefix(e.Type, "image/") && e.URL != "" {
			return e.URL
		}
	}
	if body == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

// TextOf 去除 HTML 标签并压缩空白。
func TextOf(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script,style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// 商店常见的订阅端点。
var feedCandidates = []string{
	"/collections/all.atom",
	"/products.atom",
	"/feed/?post_type=product",
	"/shop/feed/",
	"/feed",
	"/feed.xml",
	"/atom.xml",
	"/rss.xml",
	"/index.xml",
	"/feed.json",
}

// DiscoverFeed 先尝试常见端点，再回退到 HTML <link rel=alternate> 声明。
func DiscoverFeed(ctx context.Context, cl *fetch.Client, site string) (string, error) {
	for _, p := range feedCandidates {
		u := abs(site, p)
		logx.Debugf("探测候选订阅：%s", u)
		if probeFeed(ctx, cl, u) {
			return u, nil
		}
	}
	b, _, err := cl.Body(ctx, site, 2<<20)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var found string
	doc.Find("link[rel~=alternate]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := strings.ToLower(s.AttrOr("type", ""))
		if strings.Contains(t, "rss") || strings.Contains(t, "atom") || strings.Contains(t, "json") {
			found = abs(site, s.AttrOr("href", ""))
			return false
		}
		return true
	})
	if found != "" && probeFeed(ctx, cl, found) {
		logx.Debugf("从 <link> 发现订阅：%s", found)
		return found, nil
	}
	return "", fmt.Errorf("no feed discovered for %s", site)
}

// probeFeed 粗略探测 URL 是否为订阅（根据 Content-Type 与内容嗅探）。
func probeFeed(ctx context.Context, cl *fetch.Client, feedURL string) bool {
	prCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	head, ct, err := cl.Body(prCtx, feedURL, 2048)
	if err != nil {
		return false
	}
	ct = strings.ToLower(ct)
	lb := bytes.ToLower(head)
	if strings.Contains(ct, "rss") || strings.Contains(ct, "atom") || strings.Contains(ct, "xml") {
		return true
	}
	if strings.Contains(ct, "json") {
		return bytes.Contains(lb, []byte("jsonfeed.org/version"))
	}
	return bytes.Contains(lb, []byte("<rss")) || bytes.Contains(lb, []byte("<feed")) || bytes.Contains(lb, []byte("<rdf"))
}
