// 包 router 把 URL（路径或 hash 形式）映射为逻辑页面与参数，
// 并按“保留路由优先于 slug”的规则解析出要展示的视图。
package router

import (
	"net/url"
	"strings"
)

// Mode 决定可路由部分取自 path 还是 hash。
type Mode int

const (
	ModePath Mode = iota
	ModeHash
)

// ParseMode 解析配置中的模式名；未知值回退为 path。
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "path":
		return ModePath, true
	case "hash":
		return ModeHash, true
	default:
		return ModePath, false
	}
}

// 保留的系统路由名。
const (
	PageHome     = "home"
	PageAdmin    = "admin"
	PageGenerate = "generate"
	PageEdit     = "edit"
	PageAuth     = "auth"
	PageView     = "view"
)

var reserved = map[string]bool{
	PageHome: true, PageAdmin: true, PageGenerate: true,
	PageEdit: true, PageAuth: true, PageView: true,
}

// Reserved 判断是否为系统路由名。
func Reserved(id string) bool { return reserved[id] }

// State 为路由状态：页面 id 与参数。
type State struct {
	Page   string
	Params map[string]string
}

// Param 读取参数，缺失为空串。
func (s State) Param(k string) string { return s.Params[k] }

// Parse 从 URL 计算路由状态：可路由部分按 '?' 拆分，查询串解码为参数（重复键取最后一个），
// 其余部分去掉首尾斜杠作为页面 id，空则为 home。
func Parse(rawURL string, mode Mode) State {
	routable := routablePart(rawURL, mode)
	pagePart, query, _ := strings.Cut(routable, "?")
	page := strings.Trim(pagePart, "/")
	if p, err := url.PathUnescape(page); err == nil {
		page = p
	}
	if page == "" {
		page = PageHome
	}
	params := map[string]string{}
	if vals, err := url.ParseQuery(query); err == nil {
		for k, v := range vals {
			if len(v) > 0 {
				params[k] = v[len(v)-1]
			}
		}
	}
	return State{Page: page, Params: params}
}

func routablePart(rawURL string, mode Mode) string {
	if mode == ModeHash {
		_, frag, ok := strings.Cut(rawURL, "#")
		if !ok {
			return ""
		}
		return frag
	}
	s, _, _ := strings.Cut(rawURL, "#")
	if u, err := url.Parse(s); err == nil {
		if u.RawQuery != "" {
			return u.EscapedPath() + "?" + u.RawQuery
		}
		return u.EscapedPath()
	}
	return s
}

// BuildURL 构造导航目标：home 为 "/"，其他为 "/<path>"，有参数时追加编码后的查询串；
// hash 模式写在 "/#/" 之后。
func BuildURL(path string, params map[string]string, mode Mode) string {
	p := strings.Trim(path, "/")
	if p == PageHome {
		p = ""
	}
	target := "/" + url.PathEscape(p)
	if p == "" {
		target = "/"
	}
	if len(params) > 0 {
		vals := url.Values{}
		for k, v := range params {
			vals.Set(k, v)
		}
		target += "?" + vals.Encode()
	}
	if mode == ModeHash {
		return "/#" + target
	}
	return target
}
