package render

import (
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"go-landing-studio/internal/logx"
)

// 可能携带 URL 的属性。
var urlAttrs = map[string]bool{"href": true, "src": true, "action": true, "formaction": true, "xlink:href": true}

// CleanCheckout 清理运营粘贴的结账表单片段：删除 <script>，删除全部 on* 事件属性，
// 删除 javascript: 开头的 URL 属性；其余标记原样保留。
func CleanCheckout(fragment string) template.HTML {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		logx.Warnf("结账表单解析失败: %v", err)
		return ""
	}
	doc.Find("script").Remove()
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		var drop []string
		for _, a := range n.Attr {
			key := strings.ToLower(a.Key)
			switch {
			case strings.HasPrefix(key, "on"):
				drop = append(drop, a.Key)
			case urlAttrs[key] && isScriptURL(a.Val):
				drop = append(drop, a.Key)
			}
		}
		for _, k := range drop {
			s.RemoveAttr(k)
		}
	})
	out, err := doc.Find("body").Html()
	if err != nil {
		logx.Warnf("结账表单输出失败: %v", err)
		return ""
	}
	return template.HTML(strings.TrimSpace(out))
}

func isScriptURL(v string) bool {
	v = strings.ToLower(strings.Join(strings.Fields(v), ""))
	return strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:")
}
