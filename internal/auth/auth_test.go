package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-landing-studio/internal/auth"
	"go-landing-studio/internal/store"
)

func newService(t *testing.T) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(store.NewMemory(), "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestNewService_RequiresSecret(t *testing.T) {
	if _, err := auth.NewService(store.NewMemory(), "  ", time.Hour); err == nil {
		t.Fatalf("empty secret should be rejected")
	}
}

func TestSignUpSignInVerify(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	id, err := svc.SignUp(ctx, " Op@Example.com ", "secret1")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if _, err := svc.SignUp(ctx, "op@example.com", "secret2"); !errors.Is(err, auth.ErrEmailTaken) {
		t.Fatalf("duplicate sign up: want ErrEmailTaken, got %v", err)
	}
	if _, _, err := svc.SignIn(ctx, "op@example.com", "wrong"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("wrong password: want ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.SignIn(ctx, "nobody@example.com", "secret1"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("unknown user: want ErrInvalidCredentials, got %v", err)
	}
	got, tok, err := svc.SignIn(ctx, "OP@example.com", "secret1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if got != id {
		t.Fatalf("identity mismatch: %+v vs %+v", got, id)
	}
	ver, err := svc.Verify(tok)
	if err != nil || ver != id {
		t.Fatalf("verify: %+v %v", ver, err)
	}
}

func TestSignUp_Validation(t *testing.T) {
	svc := newService(t)
	if _, err := svc.SignUp(context.Background(), "not-an-email", "secret1"); !errors.Is(err, auth.ErrInvalidEmail) {
		t.Fatalf("want ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.SignUp(context.Background(), "a@b.co", "123"); !errors.Is(err, auth.ErrWeakPassword) {
		t.Fatalf("want ErrWeakPassword, got %v", err)
	}
}

func TestVerify_RejectsExpiredAndForeignTokens(t *testing.T) {
	svc := newService(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.SetNow(func() time.Time { return now })
	tok, err := svc.Issue(auth.Identity{UserID: "u1", Email: "a@b.co"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Verify(tok); err != nil {
		t.Fatalf("fresh token: %v", err)
	}
	now = now.Add(2 * time.Hour)
	if _, err := svc.Verify(tok); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expired token: want ErrInvalidToken, got %v", err)
	}

	other, _ := auth.NewService(store.NewMemory(), "other-secret", time.Hour)
	foreign, _ := other.Issue(auth.Identity{UserID: "u1"})
	if _, err := svc.Verify(foreign); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("foreign token: want ErrInvalidToken, got %v", err)
	}
	if _, err := svc.Verify(""); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("empty token: want ErrInvalidToken, got %v", err)
	}
}

func TestSession_WatchEmitsCurrentAndChanges(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, "op@example.com", "secret1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	sess := auth.NewSession(svc)
	var seen []string
	stop := sess.Watch(func(id *auth.Identity) {
		if id == nil {
			seen = append(seen, "none")
			return
		}
		seen = append(seen, id.Email)
	})
	if err := sess.SignIn(ctx, "op@example.com", "secret1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	tok := sess.Token()
	sess.SignOut()
	if err := sess.Restore(tok); err != nil {
		t.Fatalf("restore: %v", err)
	}
	stop()
	sess.SignOut()

	want := []string{"none", "op@example.com", "none", "op@example.com"}
	if len(seen) != len(want) {
		t.Fatalf("events: %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("events: %v want %v", seen, want)
		}
	}
	if sess.Current() != nil {
		t.Fatalf("session should be signed out")
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := auth.IdentityFrom(ctx); ok {
		t.Fatalf("empty context should carry no identity")
	}
	ctx = auth.WithIdentity(ctx, auth.Identity{UserID: "u", Email: "e"})
	id, ok := auth.IdentityFrom(ctx)
	if !ok || id.UserID != "u" {
		t.Fatalf("identity: %+v %v", id, ok)
	}
}
