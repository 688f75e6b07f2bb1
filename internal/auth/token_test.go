package auth

import (
	"testing"
	"time"

	"github.com/telecord/telecord/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	token, err := issuer.Issue(domain.NewUser(42, "alice"))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	user, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if user.ID != 42 {
		t.Fatalf("id=%d, want 42", user.ID)
	}
	if user.Username != "alice" {
		t.Fatalf("username=%q, want alice", user.Username)
	}
}

func TestTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer("secret", -time.Minute)
	token, err := issuer.Issue(domain.NewUser(42, "alice"))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issuer.Parse(token); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestTokenTampered(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, err := issuer.Issue(domain.NewUser(42, "alice"))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenIssuer("not-the-secret", time.Hour)
		if _, err := other.Parse(token); err == nil {
			t.Fatalf("expected error with wrong secret")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := issuer.Parse("not.a.jwt"); err == nil {
			t.Fatalf("expected error for garbage token")
		}
	})
}
