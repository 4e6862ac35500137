package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestExpiryFromToken(t *testing.T) {
	exp := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	token := signedToken(t, "u1", exp)

	got, err := ExpiryFromToken(token)
	if err != nil {
		t.Fatalf("expiry: %v", err)
	}
	if !got.Equal(exp) {
		t.Fatalf("expiry = %v, want %v", got, exp)
	}

	sub, err := SubjectFromToken(token)
	if err != nil || sub != "u1" {
		t.Fatalf("subject = %q,%v; want u1,nil", sub, err)
	}
}

func TestExpiryFromToken_ReadsExpiredTokens(t *testing.T) {
	exp := time.Now().Add(-time.Hour).Truncate(time.Second)
	got, err := ExpiryFromToken(signedToken(t, "u1", exp))
	if err != nil {
		t.Fatalf("expired tokens must still be readable: %v", err)
	}
	if !got.Equal(exp) {
		t.Fatalf("expiry = %v, want %v", got, exp)
	}
}

func TestExpiryFromToken_Garbage(t *testing.T) {
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ExpiryFromToken(tok); !errors.Is(err, ErrTokenUnreadable) {
			t.Fatalf("token %q: expected ErrTokenUnreadable, got %v", tok, err)
		}
	}
}
