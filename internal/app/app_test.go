package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"go-landing-studio/internal/app"
	"go-landing-studio/internal/auth"
	"go-landing-studio/internal/content"
	"go-landing-studio/internal/model"
	"go-landing-studio/internal/store"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func rec(id, slug string, at time.Time) model.LandingRecord {
	return model.LandingRecord{
		ID:               id,
		Slug:             slug,
		ProductName:      slug,
		BaseLanguage:     "it",
		AdditionalImages: []string{},
		CreatedAt:        at,
		Translations:     map[string]model.ContentBlock{"it": content.Blank("it")},
	}
}

func ids(list []model.LandingRecord) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}

func seeded(t *testing.T) (*app.Controller, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		if err := m.Insert(ctx, rec(id, "p-"+id, base.Add(time.Duration(i)*time.Hour)), ""); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	c := app.New(m)
	if err := c.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	return c, m
}

func TestLoad_NewestFirst(t *testing.T) {
	c, _ := seeded(t)
	if diff := cmp.Diff([]string{"c", "b", "a"}, ids(c.Records())); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}

func TestAdd_PrependsOnSuccessOnly(t *testing.T) {
	c, _ := seeded(t)
	ctx := context.Background()
	if err := c.Add(ctx, rec("d", "p-d", base.Add(5*time.Hour))); err != nil {
		t.Fatalf("add: %v", err)
	}
	if diff := cmp.Diff([]string{"d", "c", "b", "a"}, ids(c.Records())); diff != "" {
		t.Fatalf("after add (-want +got):\n%s", diff)
	}
	err := c.Add(ctx, rec("a", "dup", base))
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
	if len(c.Records()) != 4 || c.BySlug("dup") != nil {
		t.Fatalf("local list changed after failed add")
	}
}

func TestUpdate_ReplacesLocalEntry(t *testing.T) {
	c, m := seeded(t)
	ctx := context.Background()
	r := *c.ByID("b")
	r.ProductName = "Renamed"
	r.Slug = "renamed"
	r.CreatedAt = time.Time{}
	if err := c.Update(ctx, r); err != nil {
		t.Fatalf("update: %v", err)
	}
	got := c.ByID("b")
	if got.ProductName != "Renamed" || !got.CreatedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("local entry: %+v", got)
	}
	stored, err := m.Get(ctx, "b")
	if err != nil || stored.Slug != "renamed" {
		t.Fatalf("stored: %+v %v", stored, err)
	}
	if c.BySlug("renamed").ID != "b" {
		t.Fatalf("slug lookup after update")
	}

	before := c.Records()
	missing := rec("zzz", "ghost", base)
	if err := c.Update(ctx, missing); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if diff := cmp.Diff(before, c.Records()); diff != "" {
		t.Fatalf("list changed after failed update (-before +after):\n%s", diff)
	}
}

func TestDelete(t *testing.T) {
	c, _ := seeded(t)
	ctx := context.Background()
	if err := c.Delete(ctx, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if diff := cmp.Diff([]string{"c", "a"}, ids(c.Records())); diff != "" {
		t.Fatalf("after delete (-want +got):\n%s", diff)
	}
	if err := c.Delete(ctx, "b"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if len(c.Records()) != 2 {
		t.Fatalf("list changed after failed delete")
	}
}

func TestRecords_ReturnsCopy(t *testing.T) {
	c, _ := seeded(t)
	list := c.Records()
	list[0].ProductName = "mutated"
	if c.Records()[0].ProductName == "mutated" {
		t.Fatalf("Records must not alias controller state")
	}
}

func TestAdd_OwnerFromContextThenSession(t *testing.T) {
	m := store.NewMemory()
	c := app.New(m)
	ctx := context.Background()

	svc, err := auth.NewService(m, "secret", time.Hour)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	if _, err := svc.SignUp(ctx, "op@example.com", "secret1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	sess := auth.NewSession(svc)
	stop := c.Watch(sess)
	defer stop()
	if c.Operator() != nil {
		t.Fatalf("operator before sign in")
	}
	if err := sess.SignIn(ctx, "op@example.com", "secret1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	op := c.Operator()
	if op == nil || op.Email != "op@example.com" {
		t.Fatalf("operator: %+v", op)
	}

	if err := c.Add(ctx, rec("s1", "from-session", base)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := m.Owner("s1"); got != op.UserID {
		t.Fatalf("owner from session: %q", got)
	}

	reqCtx := auth.WithIdentity(ctx, auth.Identity{UserID: "u-request", Email: "x@example.com"})
	if err := c.Add(reqCtx, rec("s2", "from-request", base)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := m.Owner("s2"); got != "u-request" {
		t.Fatalf("owner from request: %q", got)
	}

	sess.SignOut()
	if c.Operator() != nil {
		t.Fatalf("operator after sign out")
	}
}

func TestDrafts_SlotPerOwner(t *testing.T) {
	c := app.New(store.NewMemory())
	ctxA := auth.WithIdentity(context.Background(), auth.Identity{UserID: "u-a", Email: "a@example.com"})
	ctxB := auth.WithIdentity(context.Background(), auth.Identity{UserID: "u-b", Email: "b@example.com"})

	if c.Drafts(ctxA) == nil || c.Drafts(ctxA) != c.Drafts(ctxA) {
		t.Fatalf("same identity must get the same slot")
	}
	if c.Drafts(ctxA) == c.Drafts(ctxB) {
		t.Fatalf("different identities share a slot")
	}
	if c.Drafts(ctxA) == c.Drafts(context.Background()) {
		t.Fatalf("anonymous context shares a slot with u-a")
	}
}
