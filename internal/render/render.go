// 包 render 用内嵌的 html/template 渲染全部页面：首页橱窗、公开落地页、管理页、编辑页、登录页与 404。
// 每个页面单独解析为一套模板（共享 layout），页面之间不会互相覆盖 "body" 定义。
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"go-landing-studio/internal/router"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	PageStorefront = "storefront"
	PagePublic     = "public"
	PageAdmin      = "admin"
	PageEditor     = "editor"
	PageAuth       = "auth"
	PageNotFound   = "notfound"
)

var pages = []string{PageStorefront, PagePublic, PageAdmin, PageEditor, PageAuth, PageNotFound}

// Renderer 持有解析好的页面模板。
type Renderer struct {
	mode  router.Mode
	pages map[string]*template.Template
}

// frame 为 layout 的数据：Lang 写入 <html lang>，View 为具体页面的视图模型。
// Hash 为 true 时 layout 会把 "#/x" 形式的地址换成服务端可见的 "/x"。
type frame struct {
	Lang  string
	Title string
	Hash  bool
	View  any
}

// New 解析全部模板；mode 决定页面内链接的形式（path 或 hash）。
func New(mode router.Mode) (*Renderer, error) {
	r := &Renderer{mode: mode, pages: make(map[string]*template.Template, len(pages))}
	base, err := template.New("layout.html").Funcs(r.funcs()).ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	for _, p := range pages {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout: %w", err)
		}
		if _, err := t.ParseFS(templatesFS, "templates/"+p+".html"); err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		r.pages[p] = t
	}
	return r, nil
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		// url "edit" "id" "42" → 当前模式下的导航地址
		"url": func(path string, kv ...string) string {
			var params map[string]string
			if len(kv) > 1 {
				params = make(map[string]string, len(kv)/2)
				for i := 0; i+1 < len(kv); i += 2 {
					params[kv[i]] = kv[i+1]
				}
			}
			return router.BuildURL(path, params, r.mode)
		},
		"upper": strings.ToUpper,
		"add":   func(a, b int) int { return a + b },
		"css":   func(s string) template.CSS { return template.CSS(sanitizeCSS(s)) },
	}
}

// Render 渲染页面到 w；先写入缓冲，模板出错时不会输出半个页面。
func (r *Renderer) Render(w io.Writer, page, lang, title string, view any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	if lang == "" {
		lang = "it"
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", frame{Lang: lang, Title: title, Hash: r.mode == router.ModeHash, View: view}); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// sanitizeCSS 只允许颜色与渐变常见字符，避免跳出 style 属性。
func sanitizeCSS(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case strings.ContainsRune("#(),.% -", r):
			return r
		}
		return -1
	}, s)
}
