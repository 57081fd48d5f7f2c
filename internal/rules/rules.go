// 包 rules 负责加载并提供商品列表页解析规则（rules.yaml），
// 以预设名（如 default/shopify/woocommerce）组织 CSS 选择器。
package rules

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPreset 为主题缺失或未知时使用的预设名。
const DefaultPreset = "default"

// Rules 为全部预设；键在解析时统一转为小写。
type Rules struct {
	Presets map[string]Preset `yaml:",inline"`
}

// Preset 为单个商店主题的解析规则。
type Preset struct {
	ProductList *ProductList `yaml:"product_list"`
}

// ProductList 为商品列表页选择器。Item 为条目容器（普通 CSS 选择器）；
// 其余字段为取值表达式："sel" 取文本，"sel@attr" 取属性，"." 为条目自身，"a||b" 依次回退。
type ProductList struct {
	Item        string `yaml:"item"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
	Link        string `yaml:"link"`
}

// Load 读取并解析规则文件。
func Load(path string) (*Rules, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	r, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return r, nil
}

// Parse 解析 YAML；带 product_list 的预设必须给出 item 与 name。
func Parse(b []byte) (*Rules, error) {
	var raw map[string]Preset
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal rules: %w", err)
	}
	r := &Rules{Presets: make(map[string]Preset, len(raw))}
	for name, p := range raw {
		if pl := p.ProductList; pl != nil && (strings.TrimSpace(pl.Item) == "" || strings.TrimSpace(pl.Name) == "") {
			return nil, fmt.Errorf("preset %q: product_list needs item and name", name)
		}
		r.Presets[strings.ToLower(strings.TrimSpace(name))] = p
	}
	return r, nil
}

// GetPreset 按主题名取预设（不区分大小写），不存在时回退到 default。
func (r *Rules) GetPreset(name string) (Preset, bool) {
	if r == nil {
		return Preset{}, false
	}
	if p, ok := r.lookup(name); ok {
		return p, true
	}
	return r.lookup(DefaultPreset)
}

func (r *Rules) lookup(name string) (Preset, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return Preset{}, false
	}
	p, ok := r.Presets[key]
	if !ok {
		// 直接构造的 Rules 可能保留了原始大小写
		for k, v := range r.Presets {
			if strings.EqualFold(k, key) {
				return v, true
			}
		}
	}
	return p, ok
}

// Names 返回已加载的预设名（有序）。
func (r *Rules) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Presets))
	for k := range r.Presets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
