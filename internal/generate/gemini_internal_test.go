package generate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"go-landing-studio/internal/media"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.config = model, contents, config
	return f.resp, f.err
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: s}}},
	}}}
}

func TestGemini_GenerateTextRequestsJSONSchema(t *testing.T) {
	fm := &fakeModels{resp: textResponse(`{"content":{"title":"Widget","reviews":[{"author":"A","rating":4.0}]}}`)}
	g := newGemini(fm, "", "")
	out, err := g.GenerateText(context.Background(), TextRequest{ProductName: "Widget", Locale: "en-US", ReviewCount: 40, FeatureCount: 4})
	if err != nil {
		t.Fatalf("generate text: %v", err)
	}
	if fm.model != "gemini-3-flash-preview" {
		t.Fatalf("model: %q", fm.model)
	}
	if fm.config == nil || fm.config.ResponseMIMEType != "application/json" || fm.config.ResponseSchema == nil {
		t.Fatalf("config: %+v", fm.config)
	}
	prompt := fm.contents[0].Parts[0].Text
	if !strings.Contains(prompt, "Genera 15 recensioni") || !strings.Contains(prompt, `"$"`) {
		t.Fatalf("prompt missing review cap or currency: %s", prompt)
	}
	rc, ok := out["en-US"]
	if !ok || rc.Title != "Widget" || len(rc.Reviews) != 1 || int(*rc.Reviews[0].Rating) != 4 {
		t.Fatalf("parsed: %+v", out)
	}
}

func TestGemini_GenerateTextErrors(t *testing.T) {
	g := newGemini(&fakeModels{resp: textResponse("")}, "", "")
	if _, err := g.GenerateText(context.Background(), TextRequest{Locale: "it"}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("empty response: want ErrEmptyResponse, got %v", err)
	}
	boom := errors.New("quota")
	g = newGemini(&fakeModels{err: boom}, "", "")
	if _, err := g.GenerateText(context.Background(), TextRequest{Locale: "it"}); !errors.Is(err, boom) {
		t.Fatalf("adapter error should wrap cause, got %v", err)
	}
}

func TestGemini_GenerateImagesInlineReference(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	fm := &fakeModels{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "here you go"},
			{InlineData: &genai.Blob{Data: png, MIMEType: "image/png"}},
			{InlineData: &genai.Blob{Data: png, MIMEType: "image/png"}},
		}},
	}}}}
	g := newGemini(fm, "", "img-model")
	out, err := g.GenerateImages(context.Background(), ImageRequest{
		ProductName: "Widget",
		Reference:   media.EncodeDataURI([]byte{1, 2, 3}, "image/jpeg"),
		Style:       StyleTech,
		Count:       2,
	})
	if err != nil {
		t.Fatalf("generate images: %v", err)
	}
	if len(out) != 2 || !strings.HasPrefix(out[0], "data:image/png;base64,") {
		t.Fatalf("images: %v", out)
	}
	if fm.model != "img-model" {
		t.Fatalf("model: %q", fm.model)
	}
	parts := fm.contents[0].Parts
	if len(parts) != 2 || parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "image/jpeg" {
		t.Fatalf("reference should be sent inline: %+v", parts)
	}
}

func TestGemini_GenerateImagesRemoteReference(t *testing.T) {
	fm := &fakeModels{resp: &genai.GenerateContentResponse{}}
	g := newGemini(fm, "", "")
	out, err := g.GenerateImages(context.Background(), ImageRequest{ProductName: "W", Reference: "https://x/y.jpg", Style: StyleInfo, Count: 1})
	if err != nil || len(out) != 0 {
		t.Fatalf("no candidates should yield no images: %v %v", out, err)
	}
	if got := fm.contents[0].Parts[1].Text; got != "Reference image URL: https://x/y.jpg" {
		t.Fatalf("remote reference: %q", got)
	}
}
