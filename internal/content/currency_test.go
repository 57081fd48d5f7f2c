package content_test

import (
	"strings"
	"testing"

	"go-landing-studio/internal/content"
	"go-landing-studio/internal/model"
)

func TestSwapCurrency(t *testing.T) {
	cases := []struct {
		in, sym, fb, want string
	}{
		{"€ 39,90", "$", "x", "$ 39,90"},
		{"£10 / €12", "€", "x", "€10 / €12"},
		{"99 zł", "£", "x", "99 £"},
		{"   ", "$", "$ 1", "$ 1"},
		{"", "€", "€ 39,90", "€ 39,90"},
		{"39,90", "$", "x", "39,90"},
	}
	for _, c := range cases {
		if got := content.SwapCurrency(c.in, c.sym, c.fb); got != c.want {
			t.Fatalf("SwapCurrency(%q,%q)=%q want %q", c.in, c.sym, got, c.want)
		}
	}
}

func TestApplyLocale_USEnglish(t *testing.T) {
	b := model.ContentBlock{Price: "€ 39,90", OldPrice: ""}
	got := content.ApplyLocale(b, "en-US")
	if !strings.Contains(got.Price, "$") || strings.Contains(got.Price, "€") {
		t.Fatalf("price: %q", got.Price)
	}
	if got.OldPrice != "$ 79,80" {
		t.Fatalf("empty old price should use locale default, got %q", got.OldPrice)
	}
}

func TestApplyLocale_PolishDefaultUsesZloty(t *testing.T) {
	got := content.ApplyLocale(model.ContentBlock{}, "pl")
	if !strings.Contains(got.Price, "zł") {
		t.Fatalf("pl default price: %q", got.Price)
	}
}
