package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "splitledger", time.Minute)
	token, err := tm.Generate(7)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	claims, err := tm.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UserID != 7 {
		t.Fatalf("UserID = %d, want 7", claims.UserID)
	}
	if claims.Issuer != "splitledger" {
		t.Fatalf("Issuer = %q, want splitledger", claims.Issuer)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", "splitledger", time.Minute).Generate(7)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := NewTokenManager("secret-b", "splitledger", time.Minute).Parse(token); err == nil {
		t.Fatal("Parse() accepted a token signed with another secret")
	}
}

func TestParse_Expired(t *testing.T) {
	tm := NewTokenManager("secret", "splitledger", -time.Minute)
	token, err := tm.Generate(7)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := tm.Parse(token); err == nil {
		t.Fatal("Parse() accepted an expired token")
	}
}
