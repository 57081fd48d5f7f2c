package generate

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"go-landing-studio/internal/logx"
	"go-landing-studio/internal/media"
	"go-landing-studio/internal/model"
)

// contentGenerator 为 genai Models 服务中用到的子集，便于测试替换。
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini 基于 google.golang.org/genai 的生成服务。
type Gemini struct {
	models     contentGenerator
	textModel  string
	imageModel string
}

// NewGemini 创建 Gemini 客户端。
func NewGemini(ctx context.Context, apiKey, textModel, imageModel string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("genai api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGemini(client.Models, textModel, imageModel), nil
}

func newGemini(models contentGenerator, textModel, imageModel string) *Gemini {
	if textModel == "" {
		textModel = "gemini-3-flash-preview"
	}
	if imageModel == "" {
		imageModel = "gemini-2.5-flash-image"
	}
	return &Gemini{models: models, textModel: textModel, imageModel: imageModel}
}

// GenerateText 请求 JSON 结构化输出并解析为原始内容块。
func (g *Gemini) GenerateText(ctx context.Context, req TextRequest) (map[string]model.RawContent, error) {
	contents := []*genai.Content{genai.NewContentFromText(TextPrompt(req), genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	}
	resp, err := g.models.GenerateContent(ctx, g.textModel, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("generate text: %w", err)
	}
	if resp == nil {
		return nil, ErrEmptyResponse
	}
	out, err := ParseTextResponse(resp.Text(), req.Locale)
	if err != nil {
		return nil, err
	}
	logx.Debugf("文案生成完成 product=%s locale=%s", req.ProductName, req.Locale)
	return out, nil
}

// GenerateImages 以参考图生成图片；返回内联 data URI 列表。
// data URI 参考图以内联字节发送，远程图片以 URL 文本引用。
func (g *Gemini) GenerateImages(ctx context.Context, req ImageRequest) ([]string, error) {
	parts := []*genai.Part{genai.NewPartFromText(ImagePrompt(req))}
	switch {
	case media.IsDataURI(req.Reference):
		data, mime, err := media.DecodeDataURI(req.Reference)
		if err != nil {
			return nil, fmt.Errorf("reference image: %w", err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, mime))
	case req.Reference != "":
		parts = append(parts, genai.NewPartFromText("Reference image URL: "+req.Reference))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := g.models.GenerateContent(ctx, g.imageModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate images (%s): %w", req.Style, err)
	}
	return inlineImages(resp), nil
}

func inlineImages(resp *genai.GenerateContentResponse) []string {
	out := []string{}
	if resp == nil || len(resp.Candidates) == 0 {
		return out
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return out
	}
	for _, p := range c.Content.Parts {
		if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
			continue
		}
		out = append(out, media.EncodeDataURI(p.InlineData.Data, p.InlineData.MIMEType))
	}
	return out
}

func responseSchema() *genai.Schema {
	str := func() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }
	num := func() *genai.Schema { return &genai.Schema{Type: genai.TypeNumber} }
	list := func(item *genai.Schema) *genai.Schema { return &genai.Schema{Type: genai.TypeArray, Items: item} }
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"content": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":            str(),
					"description":      str(),
					"ctaText":          str(),
					"urgencyText":      str(),
					"price":            str(),
					"oldPrice":         str(),
					"discountLabel":    str(),
					"guaranteeText":    str(),
					"socialProofName":  str(),
					"socialProofCount": num(),
					"features":         list(str()),
					"sellingPoints":    list(str()),
					"reviews": list(&genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"author":  str(),
							"rating":  num(),
							"comment": str(),
							"date":    str(),
						},
					}),
				},
				Required: []string{"title", "ctaText", "features", "sellingPoints", "reviews", "socialProofName", "socialProofCount", "price", "oldPrice"},
			},
		},
	}
}
