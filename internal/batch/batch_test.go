package batch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"go-landing-studio/internal/app"
	"go-landing-studio/internal/batch"
	"go-landing-studio/internal/catalog"
	"go-landing-studio/internal/config"
	"go-landing-studio/internal/generate"
	"go-landing-studio/internal/model"
	"go-landing-studio/internal/store"
)

type fakeGen struct {
	mu       sync.Mutex
	textReqs []generate.TextRequest
	refs     []string
}

func (g *fakeGen) GenerateText(_ context.Context, req generate.TextRequest) (map[string]model.RawContent, error) {
	g.mu.Lock()
	g.textReqs = append(g.textReqs, req)
	g.mu.Unlock()
	if req.ProductName == "Rotto" {
		return nil, errors.New("quota exceeded")
	}
	return map[string]model.RawContent{req.Locale: {Title: req.ProductName + " title"}}, nil
}

func (g *fakeGen) GenerateImages(_ context.Context, req generate.ImageRequest) ([]string, error) {
	g.mu.Lock()
	g.refs = append(g.refs, req.Reference)
	g.mu.Unlock()
	out := make([]string, req.Count)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%s-%d.png", req.ProductName, req.Style, i)
	}
	return out, nil
}

func TestRun_CreatesPagesAndCountsFailures(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	ctrl := app.New(store.NewMemory())
	gen := &fakeGen{}
	defaults := config.Defaults{Language: "en", Tone: "Friendly", ReviewCount: 20, ImageCount: 2, ImageStyles: []string{"human", "tech"}, TextDensity: "short"}
	r := batch.New(gen, ctrl, defaults, 2)

	seeds := []catalog.Seed{
		{Name: "Lampada Smart", Description: "Luce", ImageURL: "https://cdn.example.com/l.jpg", Link: "https://shop.example.com/l"},
		{Name: "Rotto", Description: "fallisce", Link: "https://shop.example.com/r"},
		{Name: "Senza descrizione"},
		{Name: "Borraccia", Description: "Acciaio", Link: "https://shop.example.com/b"},
	}
	rep := r.Run(ctx, seeds)
	if rep.Seeds != 4 || rep.Created != 2 || rep.Failed != 2 {
		t.Fatalf("report: %+v", rep)
	}
	if rep.Results[1].Error == "" || rep.Results[2].Error == "" || rep.Results[0].Slug != "lampada-smart" {
		t.Fatalf("results: %+v", rep.Results)
	}

	recs := ctrl.Records()
	if len(recs) != 2 {
		t.Fatalf("records: %d", len(recs))
	}
	lamp := ctrl.BySlug("lampada-smart")
	if lamp == nil {
		t.Fatalf("lampada not saved")
	}
	if lamp.BuyLink != "https://shop.example.com/l" || lamp.BaseLanguage != "en" || lamp.Tone != "Friendly" {
		t.Fatalf("record fields: %+v", lamp)
	}
	if lamp.ImageURL != "Lampada Smart-human-0.png" || len(lamp.AdditionalImages) != 1 {
		t.Fatalf("images: %q %v", lamp.ImageURL, lamp.AdditionalImages)
	}
	b := lamp.Translations["en"]
	if b.Title != "Lampada Smart title" || len(b.Reviews) != 20 {
		t.Fatalf("content: title=%q reviews=%d", b.Title, len(b.Reviews))
	}

	bor := ctrl.BySlug("borraccia")
	if bor == nil || bor.ImageURL != "https://picsum.photos/seed/product/800/800" {
		t.Fatalf("seed without image should use the placeholder: %+v", bor)
	}
	for _, ref := range gen.refs {
		if ref != "https://cdn.example.com/l.jpg" {
			t.Fatalf("only seeds with images generate pictures: %v", gen.refs)
		}
	}
	for _, req := range gen.textReqs {
		if req.TextDensity != generate.DensityShort || req.Locale != "en" {
			t.Fatalf("text request: %+v", req)
		}
	}
}

func TestRun_CancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := batch.New(&fakeGen{}, app.New(store.NewMemory()), config.Defaults{}, 1)
	rep := r.Run(ctx, []catalog.Seed{{Name: "A", Description: "a"}, {Name: "B", Description: "b"}})
	if rep.Created != 0 || rep.Failed != 2 {
		t.Fatalf("cancelled run should fail every seed: %+v", rep)
	}
}

func TestForm_AppliesDefaults(t *testing.T) {
	r := batch.New(&fakeGen{}, nil, config.Defaults{Language: "fr", ParagraphCount: 6}, 1)
	f := r.Form(catalog.Seed{Name: "X", Description: "y", ImageURL: "https://i"})
	if f.Language != "fr" || f.ParagraphCount != 6 || f.RemoteImageURL != "https://i" {
		t.Fatalf("form: %+v", f)
	}
	if f.ReviewCount != 350 || f.ImageCount != 4 || len(f.ImageStyles) != 1 || f.Tone != "Professional" {
		t.Fatalf("unset defaults should come from the blank form: %+v", f)
	}
}
