package domain

import "time"

// Session binds a refresh token to a user and is the single source of truth
// for revocation. Rows are soft-revoked for audit, never hard-deleted.
// Only one-way fingerprints of the tokens are stored.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	AccessTokenHash  string // optional; empty for sessions created before access binding
	IP               string
	UserAgent        string

	IssuedAt         time.Time
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time

	IsActive      bool
	RevokedAt     *time.Time
	RevokedReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Well-known revocation reasons recorded on sessions.
const (
	RevokedReasonLogout    = "logout"
	RevokedReasonLogoutAll = "logout_all"
	RevokedReasonRotated   = "rotated"
	RevokedReasonExpired   = "expired"
)

// Expired reports whether the refresh window has passed at the given instant.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.RefreshExpiresAt)
}

// TokenPair is what a successful login or refresh returns. AccessToken is a
// short-lived signed JWT; RefreshToken is a longer-lived single-use JWT that
// is invalidated by the rotation it performs. The wire representation lives
// with the handlers; this struct never marshals directly.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string        // always "Bearer"
	ExpiresIn    time.Duration // until access expiry
}
