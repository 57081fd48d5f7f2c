package export_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-landing-studio/internal/content"
	"go-landing-studio/internal/export"
	"go-landing-studio/internal/model"
	"go-landing-studio/internal/store"
)

func TestToJSON(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"old", "new"} {
		raw := model.RawContent{Title: name, Reviews: []model.RawReview{{Author: "A"}, {Author: "B"}}}
		rec := model.LandingRecord{
			ID:           name,
			Slug:         name,
			ProductName:  name,
			BaseLanguage: "it",
			Translations: map[string]model.ContentBlock{"it": content.Resolve(raw), "en": content.ResolveFor(model.RawContent{}, "en")},
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		}
		if err := m.Insert(ctx, rec, ""); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "pages.json")
	if err := export.ToJSON(ctx, m, path); err != nil {
		t.Fatalf("export: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var f export.File
	if err := json.Unmarshal(b, &f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Stats.Records != 2 || f.Stats.Locales != 4 || f.Stats.Reviews != 4 {
		t.Fatalf("stats: %+v", f.Stats)
	}
	if f.Records[0].ID != "new" || f.Records[1].ID != "old" {
		t.Fatalf("records should be newest first: %s, %s", f.Records[0].ID, f.Records[1].ID)
	}
}

func TestToJSONData_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := export.ToJSONData(nil, path, time.Now()); err != nil {
		t.Fatalf("export: %v", err)
	}
	b, _ := os.ReadFile(path)
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["records"]) != "[]" {
		t.Fatalf("records should be an empty list: %s", raw["records"])
	}
	if err := export.ToJSONData(nil, filepath.Join(t.TempDir(), "missing", "x.json"), time.Now()); err == nil {
		t.Fatalf("unwritable path should fail")
	}
}
