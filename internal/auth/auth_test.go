package auth

import (
	"context"
	"testing"
	"time"
)

var testSecret = []byte("test-secret-please-rotate")

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(testSecret, "user-1", "company-1", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ParseAndValidate(testSecret, token)
	if err != nil {
		t.Fatalf("ParseAndValidate failed: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.CompanyID != "company-1" {
		t.Fatalf("unexpected company: %s", claims.CompanyID)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(testSecret, "user-1", "", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := ParseAndValidate([]byte("other-secret"), token); err == nil {
		t.Fatal("expected invalid token error")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, tok := range []string{"", "   ", "not.a.token"} {
		if _, err := ParseAndValidate(testSecret, tok); err == nil {
			t.Fatalf("expected error for %q", tok)
		}
	}
}

func TestGenerateRequiresUser(t *testing.T) {
	if _, err := GenerateToken(testSecret, "  ", "", time.Minute); err == nil {
		t.Fatal("expected error for blank user id")
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if err := VerifyPassword(hash, "s3cret!"); err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestUserContext(t *testing.T) {
	ctx := ContextWithUser(context.Background(), "user-7", "company-3")

	if id, ok := UserIDFromContext(ctx); !ok || id != "user-7" {
		t.Fatalf("unexpected user id: %q ok=%v", id, ok)
	}
	if id, ok := CompanyIDFromContext(ctx); !ok || id != "company-3" {
		t.Fatalf("unexpected company id: %q ok=%v", id, ok)
	}
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("expected no user on empty context")
	}
}
