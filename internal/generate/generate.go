// 包 generate 定义生成服务（文案 + 图片）的契约与提示词，并提供基于 Gemini 的实现。
// 生成结果一律视为不可信的部分数据：形状修复交给 content 包，评价数量不足由 TopUpReviews 补齐。
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"go-landing-studio/internal/locale"
	"go-landing-studio/internal/model"
)

var ErrEmptyResponse = errors.New("empty generation response")

// MaxAIReviews 为单次请求模型生成的评价上限，其余由本地补齐。
const MaxAIReviews = 15

// TextDensity 控制文案篇幅。
type TextDensity string

const (
	DensityShort  TextDensity = "short"
	DensityMedium TextDensity = "medium"
	DensityLong   TextDensity = "long"
)

// ImageStyle 为图片生成风格。
type ImageStyle string

const (
	StyleHuman ImageStyle = "human"
	StyleTech  ImageStyle = "tech"
	StyleInfo  ImageStyle = "info"
)

var stylePrompts = map[ImageStyle]string{
	StyleHuman: "Lifestyle product photography with people in the background, warm natural lighting, authentic environment.",
	StyleTech:  "Studio macro photography, cinematic lighting, dark background, extreme focus on product textures and build quality.",
	StyleInfo:  "Clean marketing visual, white background, product centered, professional product graphics style.",
}

var densityInstructions = map[TextDensity]string{
	DensityShort:  "Usa frasi brevissime, elenchi puntati e uno stile 'punchy' e diretto.",
	DensityMedium: "Usa paragrafi di media lunghezza (2-3 frasi) bilanciando benefici e caratteristiche.",
	DensityLong:   "Usa paragrafi ampi e descrittivi, ricchi di storytelling e dettagli tecnici.",
}

// ParseDensity 校验篇幅取值；空串视为 medium。
func ParseDensity(s string) (TextDensity, error) {
	d := TextDensity(strings.ToLower(strings.TrimSpace(s)))
	if d == "" {
		return DensityMedium, nil
	}
	if _, ok := densityInstructions[d]; !ok {
		return "", fmt.Errorf("unknown text density %q", s)
	}
	return d, nil
}

// ParseStyle 校验图片风格。
func ParseStyle(s string) (ImageStyle, error) {
	st := ImageStyle(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := stylePrompts[st]; !ok {
		return "", fmt.Errorf("unknown image style %q", s)
	}
	return st, nil
}

// TextRequest 为文案生成请求。
type TextRequest struct {
	ProductName    string
	Description    string
	Niche          string
	TargetAudience string
	Tone           string
	Locale         string
	FeatureCount   int
	TextDensity    TextDensity
	ReviewCount    int
}

// ImageRequest 为单一风格的图片生成请求；Reference 为 data URI 或远程 URL。
type ImageRequest struct {
	ProductName string
	Reference   string
	Style       ImageStyle
	Count       int
}

// Service 为生成服务契约；两个调用互相独立、都可能失败，并支持通过 ctx 取消。
type Service interface {
	GenerateText(ctx context.Context, req TextRequest) (map[string]model.RawContent, error)
	GenerateImages(ctx context.Context, req ImageRequest) ([]string, error)
}

// TextPrompt 构造文案提示词。
func TextPrompt(req TextRequest) string {
	density, ok := densityInstructions[req.TextDensity]
	if !ok {
		density = densityInstructions[DensityMedium]
	}
	currency := locale.Currency(req.Locale)
	var b strings.Builder
	b.WriteString("Sei un esperto Copywriter e Marketing Specialist. Genera contenuti per una landing page ad alta conversione.\n")
	fmt.Fprintf(&b, "PRODOTTO: %q\n", req.ProductName)
	fmt.Fprintf(&b, "DESCRIZIONE: %q\n", req.Description)
	if req.Niche != "" {
		fmt.Fprintf(&b, "NICCHIA: %q\n", req.Niche)
	}
	if req.TargetAudience != "" {
		fmt.Fprintf(&b, "TARGET: %q\n", req.TargetAudience)
	}
	fmt.Fprintf(&b, "TONO: %q\n", req.Tone)
	fmt.Fprintf(&b, "LINGUA: %q\n", req.Locale)
	fmt.Fprintf(&b, "VALUTA RICHIESTA: %q\n\n", currency)
	b.WriteString("REQUISITI MANDATORI:\n")
	fmt.Fprintf(&b, "1. Genera ESATTAMENTE %d elementi nell'array \"features\". Ogni elemento deve seguire lo schema \"Titolo: Testo descrittivo\".\n", req.FeatureCount)
	b.WriteString("2. Integra argomentazioni basate su esperienze reali e feedback entusiasti dei clienti direttamente all'interno delle descrizioni dei benefici (features).\n")
	b.WriteString("3. Genera un array \"sellingPoints\" di 4-5 punti di forza brevissimi (massimo 5-6 parole ciascuno).\n")
	fmt.Fprintf(&b, "4. Lo stile deve essere: %s\n", density)
	fmt.Fprintf(&b, "5. Usa SEMPRE il simbolo della valuta %q nei campi \"price\" e \"oldPrice\".\n", currency)
	fmt.Fprintf(&b, "6. Genera %d recensioni realistiche.\n", AIReviewTarget(req.ReviewCount))
	b.WriteString("7. Genera un \"socialProofName\" e un \"socialProofCount\".\n\n")
	b.WriteString("Restituisci ESCLUSIVAMENTE un JSON valido.")
	return b.String()
}

// AIReviewTarget 为请求模型生成的评价数：min(reviewCount, 15)，不小于 0。
func AIReviewTarget(reviewCount int) int {
	return max(0, min(reviewCount, MaxAIReviews))
}

// ImagePrompt 构造图片提示词。
func ImagePrompt(req ImageRequest) string {
	return fmt.Sprintf("Generate %d variations of the product %q in %s style. %s Keep the core product appearance consistent with the reference image.",
		req.Count, req.ProductName, req.Style, stylePrompts[req.Style])
}

// PerStyle 为每种风格请求的图片数：ceil(total/styles)。
func PerStyle(total, styles int) int {
	if total <= 0 || styles <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(styles)))
}

// ParseTextResponse 解析模型返回的 {"content": {...}}，按请求语言为键返回。
// 顶层没有 content 包裹时直接把整个对象当作内容块。
func ParseTextResponse(text, tag string) (map[string]model.RawContent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	text = stripFence(text)
	var env struct {
		Content *model.RawContent `json:"content"`
	}
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, fmt.Errorf("decode generation json: %w", err)
	}
	if env.Content == nil {
		var rc model.RawContent
		if err := json.Unmarshal([]byte(text), &rc); err != nil {
			return nil, fmt.Errorf("decode generation json: %w", err)
		}
		env.Content = &rc
	}
	return map[string]model.RawContent{tag: *env.Content}, nil
}

// stripFence 去掉模型偶尔包裹的 ```json 代码块。
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
