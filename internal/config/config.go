// 包 config 负责加载与校验应用配置（settings.yaml），
// 对外提供结构体 Config 及默认值/合法性校验；敏感项可由环境变量覆盖。
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"go-landing-studio/internal/generate"
	"go-landing-studio/internal/router"
)

type Config struct {
	Server       Server      `yaml:"SERVER"`
	Auth         Auth        `yaml:"AUTH"`
	GenAI        GenAI       `yaml:"GENAI"`
	Catalog      Catalog     `yaml:"CATALOG"`
	SimpleMode   bool        `yaml:"SIMPLE_MODE"`
	ResetOnStart bool        `yaml:"RESET_ON_START"`
	Database     Database    `yaml:"DATABASE"`
	Concurrency  Concurrency `yaml:"CONCURRENCY"`
	Proxy        Proxy       `yaml:"PROXY"`
	LogLevel     string      `yaml:"LOG_LEVEL"`
	LogFormat    string      `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale    string      `yaml:"LOG_LOCALE"` // zh-CN|en|it
	LogColor     string      `yaml:"LOG_COLOR"`  // auto|always|never
}

type Server struct {
	Addr      string `yaml:"addr"`
	RouteMode string `yaml:"route_mode"` // path|hash
}

type Auth struct {
	Secret     string        `yaml:"secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	// Operator 为批量导入时写入 user_id 的账号；为空则不记录归属。
	OperatorEmail    string `yaml:"operator_email"`
	OperatorPassword string `yaml:"operator_password"`
}

type GenAI struct {
	APIKey     string        `yaml:"api_key"`
	TextModel  string        `yaml:"text_model"`
	ImageModel string        `yaml:"image_model"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Catalog 为商品种子来源与批量生成时的表单默认值。
type Catalog struct {
	Sources  []Source `yaml:"sources"`
	Defaults Defaults `yaml:"defaults"`
}

type Source struct {
	// Type：feed 走订阅解析，page 按 rules.yaml 选择器解析
	Type  string `yaml:"type"`
	URL   string `yaml:"url"`
	Theme string `yaml:"theme"`
}

type Defaults struct {
	Language       string   `yaml:"language"`
	Niche          string   `yaml:"niche"`
	Target         string   `yaml:"target"`
	Tone           string   `yaml:"tone"`
	ParagraphCount int      `yaml:"paragraph_count"`
	TextDensity    string   `yaml:"text_density"`
	ReviewCount    int      `yaml:"review_count"`
	ImageCount     int      `yaml:"image_count"`
	ImageStyles    []string `yaml:"image_styles"`
}

type Database struct {
	Type string `yaml:"type"` // sqlite (default)
	DSN  string `yaml:"dsn"`  // ./landing.db
}

type Concurrency struct {
	Fetch    int `yaml:"fetch"`
	Retry    int `yaml:"retry"`
	Generate int `yaml:"generate"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// overrides 为可由环境变量覆盖的字段；未设置的变量不会清空 YAML 中的值。
type overrides struct {
	APIKey           string `env:"LANDING_GENAI_API_KEY"`
	AuthSecret       string `env:"LANDING_AUTH_SECRET"`
	OperatorPassword string `env:"LANDING_OPERATOR_PASSWORD"`
	Addr             string `env:"LANDING_ADDR"`
	DSN              string `env:"LANDING_DB_DSN"`
}

// Load 从文件读取 YAML，叠加环境变量，再做校验与默认值填充。
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// ApplyEnv 用 LANDING_* 环境变量覆盖对应字段。
func (c *Config) ApplyEnv() error {
	var o overrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.GenAI.APIKey, o.APIKey)
	set(&c.Auth.Secret, o.AuthSecret)
	set(&c.Auth.OperatorPassword, o.OperatorPassword)
	set(&c.Server.Addr, o.Addr)
	set(&c.Database.DSN, o.DSN)
	return nil
}

// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RouteMode == "" {
		c.Server.RouteMode = "path"
	}
	if _, ok := router.ParseMode(c.Server.RouteMode); !ok {
		return fmt.Errorf("unsupported route mode: %s", c.Server.RouteMode)
	}
	if c.Auth.SessionTTL < 0 {
		return errors.New("AUTH.session_ttl must be >= 0")
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 168 * time.Hour
	}
	if c.GenAI.TextModel == "" {
		c.GenAI.TextModel = "gemini-3-flash-preview"
	}
	if c.GenAI.ImageModel == "" {
		c.GenAI.ImageModel = "gemini-2.5-flash-image"
	}
	if c.GenAI.Timeout <= 0 {
		c.GenAI.Timeout = 120 * time.Second
	}
	if err := c.Catalog.validate(); err != nil {
		return err
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type != "sqlite" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./landing.db"
	}
	if c.Concurrency.Fetch <= 0 {
		c.Concurrency.Fetch = 8
	}
	if c.Concurrency.Retry < 0 {
		return errors.New("CONCURRENCY.retry must be >= 0")
	}
	if c.Concurrency.Retry == 0 {
		c.Concurrency.Retry = 2
	}
	if c.Concurrency.Generate <= 0 {
		c.Concurrency.Generate = 2
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}

func (cat *Catalog) validate() error {
	for i, s := range cat.Sources {
		t := strings.ToLower(strings.TrimSpace(s.Type))
		if t == "" {
			t = "feed"
		}
		if t != "feed" && t != "page" {
			return fmt.Errorf("CATALOG.sources[%d]: unsupported type %q", i, s.Type)
		}
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("CATALOG.sources[%d]: url is required", i)
		}
		cat.Sources[i].Type = t
	}
	d := &cat.Defaults
	if d.ParagraphCount < 0 || d.ReviewCount < 0 || d.ImageCount < 0 {
		return errors.New("CATALOG.defaults counts must be >= 0")
	}
	if d.Language == "" {
		d.Language = "it"
	}
	if d.Tone == "" {
		d.Tone = "Professional"
	}
	if d.ParagraphCount == 0 {
		d.ParagraphCount = 4
	}
	if d.TextDensity == "" {
		d.TextDensity = string(generate.DensityMedium)
	}
	if _, err := generate.ParseDensity(d.TextDensity); err != nil {
		return fmt.Errorf("CATALOG.defaults: %w", err)
	}
	if d.ReviewCount == 0 {
		d.ReviewCount = 350
	}
	if d.ImageCount == 0 {
		d.ImageCount = 4
	}
	if len(d.ImageStyles) == 0 {
		d.ImageStyles = []string{string(generate.StyleHuman)}
	}
	for _, s := range d.ImageStyles {
		if _, err := generate.ParseStyle(s); err != nil {
			return fmt.Errorf("CATALOG.defaults: %w", err)
		}
	}
	return nil
}

// Styles 返回解析后的图片风格列表（Validate 之后调用）。
func (d Defaults) Styles() []generate.ImageStyle {
	out := make([]generate.ImageStyle, 0, len(d.ImageStyles))
	for _, s := range d.ImageStyles {
		if st, err := generate.ParseStyle(s); err == nil {
			out = append(out, st)
		}
	}
	return out
}

// Density 返回解析后的文字密度（非法值回退为 medium）。
func (d Defaults) Density() generate.TextDensity {
	if td, err := generate.ParseDensity(d.TextDensity); err == nil {
		return td
	}
	return generate.DensityMedium
}
