package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenUnreadable = errors.New("token unreadable")

// ExpiryFromToken lee el claim exp de un JWT sin verificar la firma.
// La verificación es responsabilidad del servidor; el cliente solo necesita saber cuándo renovar.
func ExpiryFromToken(token string) (time.Time, error) {
	claims, err := unverifiedClaims(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrTokenUnreadable
	}
	return claims.ExpiresAt.Time, nil
}

// SubjectFromToken lee el claim sub de un JWT sin verificar la firma.
func SubjectFromToken(token string) (string, error) {
	claims, err := unverifiedClaims(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func unverifiedClaims(token string) (jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims
	if token == "" {
		return claims, ErrTokenUnreadable
	}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return jwt.RegisteredClaims{}, ErrTokenUnreadable
	}
	return claims, nil
}
