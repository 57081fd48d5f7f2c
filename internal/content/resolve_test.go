package content_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go-landing-studio/internal/content"
	"go-landing-studio/internal/model"
)

func TestResolve_EmptyInputFillsEverything(t *testing.T) {
	b := content.Resolve(model.RawContent{})
	if b.Features == nil || b.SellingPoints == nil || b.Reviews == nil {
		t.Fatalf("lists must be non-nil: %+v", b)
	}
	if len(b.Announcements) != 2 {
		t.Fatalf("want 2 default announcements, got %d", len(b.Announcements))
	}
	if b.StockCount != 13 || b.PopupCount != 9 || b.PopupInterval != 10 || b.AnnouncementInterval != 5 {
		t.Fatalf("numeric defaults: %+v", b)
	}
	if b.SocialProofName != "Michelle" || b.SocialProofCount != 758 {
		t.Fatalf("social proof defaults: %q %d", b.SocialProofName, b.SocialProofCount)
	}
	if diff := cmp.Diff(content.DefaultTimeline, b.TimelineConfig); diff != "" {
		t.Fatalf("timeline (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(content.DemoVideos(), b.VideoItems); diff != "" {
		t.Fatalf("videos (-want +got):\n%s", diff)
	}
	if b.Price == "" || b.OldPrice == "" || b.CTAText == "" || b.DiscountLabel == "" {
		t.Fatalf("string defaults missing: %+v", b)
	}
}

func TestResolve_LegacyVideoURLs(t *testing.T) {
	raw := model.RawContent{
		VideoItems:       []model.RawVideoItem{},
		VideoURLs:        []string{"a.mp4", "b.mp4"},
		VideoBorderColor: "red",
	}
	want := []model.VideoItem{
		{URL: "a.mp4", BorderColor: "red", AutoPlay: true, Loop: true, Muted: true},
		{URL: "b.mp4", BorderColor: "red", AutoPlay: true, Loop: true, Muted: true},
	}
	if diff := cmp.Diff(want, content.Resolve(raw).VideoItems); diff != "" {
		t.Fatalf("legacy videos (-want +got):\n%s", diff)
	}
}

func TestResolve_LegacyVideoURLsWithoutBorder(t *testing.T) {
	got := content.Resolve(model.RawContent{VideoURLs: []string{"x.mp4"}}).VideoItems
	if len(got) != 1 || got[0].BorderColor != content.FallbackBorder {
		t.Fatalf("want fallback border, got %+v", got)
	}
}

func TestResolve_NewShapeWinsOverLegacy(t *testing.T) {
	raw := model.RawContent{
		VideoItems: []model.RawVideoItem{{URL: "n.mp4", Muted: model.BoolPtr(false)}},
		VideoURLs:  []string{"old.mp4"},
	}
	want := []model.VideoItem{{URL: "n.mp4", AutoPlay: true, Loop: true, Muted: false}}
	if diff := cmp.Diff(want, content.Resolve(raw).VideoItems); diff != "" {
		t.Fatalf("videos (-want +got):\n%s", diff)
	}
}

func TestResolve_ReviewsClampedAndIdentified(t *testing.T) {
	raw := model.RawContent{Reviews: []model.RawReview{
		{Author: "A", Rating: model.IntPtr(9)},
		{Author: "B", Rating: model.IntPtr(0)},
		{Author: "C"},
	}}
	got := content.Resolve(raw).Reviews
	ratings := []int{got[0].Rating, got[1].Rating, got[2].Rating}
	if diff := cmp.Diff([]int{5, 1, 5}, ratings); diff != "" {
		t.Fatalf("ratings (-want +got):\n%s", diff)
	}
	for _, r := range got {
		if r.ID == "" {
			t.Fatalf("review without id: %+v", r)
		}
	}
}

func TestResolve_ExplicitValuesKept(t *testing.T) {
	raw := model.RawContent{
		StockCount:      model.IntPtr(2),
		PopupCount:      model.IntPtr(3),
		PopupInterval:   model.IntPtr(1),
		SocialProofName: "Anna",
		Announcements:   []model.Announcement{{Text: "solo"}},
		TimelineConfig:  &model.TimelineConfig{ReadyDaysMin: 3, ReadyDaysMax: 3, DeliveryDaysMin: -1, DeliveryDaysMax: 5},
	}
	b := content.Resolve(raw)
	if b.StockCount != 2 || b.PopupCount != 3 || b.PopupInterval != 1 || b.SocialProofName != "Anna" {
		t.Fatalf("explicit values overwritten: %+v", b)
	}
	if len(b.Announcements) != 1 || b.Announcements[0].ID == "" {
		t.Fatalf("announcements: %+v", b.Announcements)
	}
	if b.TimelineConfig.DeliveryDaysMin != 0 || b.TimelineConfig.ReadyDaysMax != 3 {
		t.Fatalf("timeline: %+v", b.TimelineConfig)
	}
}

func TestResolve_FlexibleNumbersFromJSON(t *testing.T) {
	var raw model.RawContent
	in := `{"stockCount":"7","popupCount":4.6,"popupInterval":null,"reviews":[{"author":"x","rating":"4"}]}`
	if err := json.Unmarshal([]byte(in), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	b := content.Resolve(raw)
	if b.StockCount != 7 || b.PopupCount != 5 || b.PopupInterval != 10 || b.Reviews[0].Rating != 4 {
		t.Fatalf("flex numbers: %+v", b)
	}
}

func TestResolve_UnparseableNumbersTakeDefaults(t *testing.T) {
	var raw model.RawContent
	in := `{"title":"Acme","stockCount":"tredici","socialProofCount":"758+","popupCount":true,` +
		`"popupInterval":"NaN","reviews":[{"author":"x","rating":"cinque"}],"timelineConfig":{"readyDaysMin":"uno","readyDaysMax":3}}`
	if err := json.Unmarshal([]byte(in), &raw); err != nil {
		t.Fatalf("unmarshal should tolerate bad numbers: %v", err)
	}
	b := content.Resolve(raw)
	if b.Title != "Acme" {
		t.Fatalf("title lost: %q", b.Title)
	}
	if b.StockCount != content.DefaultStockCount || b.SocialProofCount != content.DefaultSocialProofCount ||
		b.PopupCount != content.DefaultPopupCount || b.PopupInterval != content.DefaultPopupInterval {
		t.Fatalf("bad numbers should fall back to defaults: %+v", b)
	}
	if b.Reviews[0].Rating != content.DefaultRating {
		t.Fatalf("bad rating: %d", b.Reviews[0].Rating)
	}
	if b.TimelineConfig.ReadyDaysMin != 0 || b.TimelineConfig.ReadyDaysMax != 3 {
		t.Fatalf("timeline: %+v", b.TimelineConfig)
	}
}

func TestMigrate_PerLocaleDefaults(t *testing.T) {
	got := content.Migrate(map[string]model.RawContent{
		"en-US": {Title: "Hi"},
		"it":    {Title: "Ciao"},
	})
	if !strings.Contains(got["en-US"].Price, "$") || !strings.Contains(got["it"].Price, "€") {
		t.Fatalf("default prices: %q / %q", got["en-US"].Price, got["it"].Price)
	}
	if got["en-US"].Announcements[0].Text == got["it"].Announcements[0].Text {
		t.Fatalf("announcements should follow locale")
	}
}

func TestBlank_Template(t *testing.T) {
	b := content.Blank("it")
	if b.Title != "Nuova Landing Page" || b.CTAText != "ORDINA ORA" {
		t.Fatalf("blank: %q %q", b.Title, b.CTAText)
	}
	if got := content.Blank("en").Title; got != "New Landing Page" {
		t.Fatalf("english blank title: %q", got)
	}
	if b.Price != "€ 39,90" || b.OldPrice != "€ 79,80" {
		t.Fatalf("blank prices: %q %q", b.Price, b.OldPrice)
	}
	if len(b.Features) != 0 || len(b.Reviews) != 0 || len(b.VideoItems) != 3 {
		t.Fatalf("blank lists: %+v", b)
	}
	if got := content.Blank("en-GB").Price; got != "£ 39,90" {
		t.Fatalf("en-GB blank price: %q", got)
	}
}

func TestToRaw_RoundTripIsStable(t *testing.T) {
	b := content.Resolve(model.RawContent{
		Title:    "T",
		Features: []string{"A: b"},
		Reviews:  []model.RawReview{{ID: "r1", Author: "X", Rating: model.IntPtr(4), Comment: "ok"}},
	})
	if diff := cmp.Diff(b, content.Resolve(content.ToRaw(b))); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}
