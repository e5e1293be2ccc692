package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Short access / long refresh; both overridable through
// service configuration.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Class labels which family a token belongs to. Access and refresh tokens
// are signed with distinct secrets, and the class claim is checked on verify
// so a refresh token can never be replayed as an access token (or vice
// versa) even if the secrets were ever deployed equal by mistake.
type Class string

const (
	ClassAccess  Class = "access"
	ClassRefresh Class = "refresh"
)

// Claims are the signed token claims shared by both token classes. We keep
// changes additive to preserve compatibility with outstanding tokens.
type Claims struct {
	jwt.RegisteredClaims

	// TenantID scopes the subject to its company.
	TenantID string `json:"tid,omitempty"`

	// Role is the subject's role name at issue time. Authorization re-checks
	// the store for anything sensitive; this is a hint for cheap gating.
	Role string `json:"role,omitempty"`

	// SID binds the token to its session row, the revocation authority.
	SID string `json:"sid,omitempty"`

	// TokenClass is "access" or "refresh".
	TokenClass Class `json:"cls,omitempty"`
}

// NewClaims builds minimally-correct claims for one token class.
func NewClaims(
	subject, tenantID, role, sid string,
	class Class,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		TenantID:   tenantID,
		Role:       role,
		SID:        sid,
		TokenClass: class,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ExpiresIn reports the remaining lifetime relative to now, floored at zero.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
