package auth

import (
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	Configure("test-secret", time.Minute, time.Hour)

	token, err := GenerateToken(42, "alice")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestTokenPair(t *testing.T) {
	Configure("test-secret", time.Minute, time.Hour)

	pair, err := GenerateTokenPair(7, "bob")
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}
	for _, token := range []string{pair.Access, pair.Refresh} {
		claims, err := ParseToken(token)
		if err != nil {
			t.Fatalf("ParseToken: %v", err)
		}
		if claims.UserID != 7 {
			t.Errorf("expected user 7, got %d", claims.UserID)
		}
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	Configure("test-secret", time.Minute, time.Hour)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := ParseToken(token); err == nil {
			t.Errorf("ParseToken(%q) should have failed", token)
		}
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	Configure("test-secret", -time.Minute, time.Hour)
	defer Configure("test-secret", time.Minute, time.Hour)

	token, err := GenerateToken(1, "carol")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	_, err = ParseToken(token)
	if err == nil {
		t.Fatal("expired token should be rejected")
	}
	if !strings.Contains(err.Error(), "invalid token") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	Configure("test-secret", time.Minute, time.Hour)
	token, err := GenerateToken(1, "dave")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	// Tamper with the signature.
	tampered := token[:len(token)-2] + "xx"
	if _, err := ParseToken(tampered); err == nil {
		t.Error("tampered token should be rejected")
	}
}
