package security

import (
	"errors"
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatalf("expected hashed value")
	}
	if errCheck := CheckPassword(hash, "s3cret-pass"); errCheck != nil {
		t.Fatalf("expected match, got %v", errCheck)
	}
	if errCheck := CheckPassword(hash, "wrong"); !errors.Is(errCheck, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", errCheck)
	}
}

func TestIssueAndParseUserToken(t *testing.T) {
	token, err := IssueUserToken("secret", "user-1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, errParse := ParseUserToken("secret", token)
	if errParse != nil {
		t.Fatalf("parse: %v", errParse)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("expected user-1, got %q", claims.UserID)
	}

	if _, errParse = ParseUserToken("other-secret", token); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", errParse)
	}
}

func TestParseUserToken_Expired(t *testing.T) {
	token, err := IssueUserToken("secret", "user-1", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, errParse := ParseUserToken("secret", token); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", errParse)
	}
}

func TestIssueUserToken_EmptySecret(t *testing.T) {
	if _, err := IssueUserToken(" ", "user-1", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestGenerateRandomString(t *testing.T) {
	a, err := GenerateRandomString(32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, _ := GenerateRandomString(32)
	if len(a) != 64 || a == b {
		t.Fatalf("unexpected random output %q %q", a, b)
	}
}
