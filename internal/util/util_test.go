package util

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return token
}

func TestValidateJWT(t *testing.T) {
	now := time.Now()
	token := signTestToken(t, "secret", jwt.MapClaims{
		"sub":   "u1",
		"email": "u1@example.com",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})

	claims, err := ValidateJWT(token, "secret")
	if err != nil {
		t.Fatalf("ValidateJWT returned error: %v", err)
	}
	if claims.Subject != "u1" {
		t.Errorf("subject = %q, want u1", claims.Subject)
	}
	if claims.Email != "u1@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
}

func TestValidateJWTWrongSecret(t *testing.T) {
	token := signTestToken(t, "secret", jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()})
	if _, err := ValidateJWT(token, "other-secret"); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestValidateJWTExpired(t *testing.T) {
	token := signTestToken(t, "secret", jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()})
	if _, err := ValidateJWT(token, "secret"); err == nil {
		t.Fatal("expected error for expired token")
	}
}
