// 包 fetch 封装 HTTP 客户端（代理/超时/重试），用于抓取商品订阅与商品列表页。
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

const (
	defaultUA     = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
	defaultAccept = "text/html,application/xhtml+xml,application/atom+xml,application/rss+xml,application/xml;q=0.9,*/*;q=0.8"
)

// Client 为带重试的 HTTP 客户端。
type Client struct {
	http    *http.Client
	retry   int
	backoff time.Duration
}

// Options 为客户端构造参数。
type Options struct {
	ProxyHTTP  string
	ProxyHTTPS string
	Timeout    time.Duration
	Retry      int
	// Backoff 为第 i 次重试前等待 (i+1)*Backoff；默认 300ms。
	Backoff time.Duration
}

// StatusError 为非 2xx 响应。
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string { return fmt.Sprintf("GET %s: http status %s", e.URL, e.Status) }

// Temporary 报告该状态是否值得重试：5xx、408 与 429。
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests
}

// New 创建客户端；代理地址在此解析一次，未配置时沿用环境变量代理。
func New(opts Options) (*Client, error) {
	var proxies [2]*url.URL
	for i, p := range []string{opts.ProxyHTTP, opts.ProxyHTTPS} {
		if p == "" {
			continue
		}
		u, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("parse proxy %s: %w", p, err)
		}
		proxies[i] = u
	}
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			switch {
			case req.URL.Scheme == "http" && proxies[0] != nil:
				return proxies[0], nil
			case req.URL.Scheme == "https" && proxies[1] != nil:
				return proxies[1], nil
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		MaxIdleConnsPerHost:   4,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 300 * time.Millisecond
	}
	return &Client{
		http:    &http.Client{Transport: transport, Timeout: opts.Timeout},
		retry:   max(0, opts.Retry),
		backoff: opts.Backoff,
	}, nil
}

func userAgent() string {
	// 商店常对默认 Go UA 返回 403，可用 LANDING_UA 覆盖
	if ua := os.Getenv("LANDING_UA"); ua != "" {
		return ua
	}
	return defaultUA
}

// once 发出单次请求；非 2xx 时关闭响应体并返回 *StatusError。
func (c *Client) once(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("Accept", defaultAccept)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

// Get 按线性回退重试网络错误与临时状态；其余 4xx 直接返回。
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	var err error
	for i := 0; i <= c.retry; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i) * c.backoff):
			}
		}
		var resp *http.Response
		if resp, err = c.once(ctx, rawURL); err == nil {
			return resp, nil
		}
		if se, ok := err.(*StatusError); ok && !se.Temporary() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, err
}

// Body 抓取 rawURL 并读取至多 limit 字节的正文，同时返回 Content-Type。
func (c *Client) Body(ctx context.Context, rawURL string, limit int64) ([]byte, string, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", rawURL, err)
	}
	return b, resp.Header.Get("Content-Type"), nil
}
