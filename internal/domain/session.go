package domain

import "time"

// SessionState es el estado de la sesión de identidad del cliente.
type SessionState int

const (
	Unauthenticated SessionState = iota
	Authenticating
	Authenticated
	Expired
)

func (s SessionState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Session representa la identidad autenticada y su credencial bearer.
// AccessToken solo es no vacío cuando State == Authenticated.
type Session struct {
	State        SessionState `json:"state"`
	Subject      string       `json:"subject,omitempty"`
	AccessToken  string       `json:"-"`
	RefreshToken string       `json:"-"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// ExpiresWithin indica si la credencial vence antes de now+skew.
func (s Session) ExpiresWithin(now time.Time, skew time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(s.ExpiresAt)
}
