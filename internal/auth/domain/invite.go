package domain

import "time"

// InviteStatus classifies an invite's position in its one-way state machine.
// used, expired and cancelled are terminal; cancelled invites are removed
// from storage so they read back as not found.
type InviteStatus string

const (
	InviteStatusPending InviteStatus = "pending"
	InviteStatusUsed    InviteStatus = "used"
	InviteStatusExpired InviteStatus = "expired"
)

// Invite gates account creation. It is scoped to a tenant, caps the role the
// new account receives, and only the SHA-256 fingerprint of its opaque token
// is persisted.
type Invite struct {
	ID              string
	TenantID        string
	Email           string
	Role            Role
	InvitedByUserID string
	TokenHash       string

	MaxUses   int
	Uses      int
	ExpiresAt time.Time

	UsedAt       *time.Time
	UsedByUserID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Status classifies the invite at the given instant. Exhaustion wins over
// expiry: a fully-used invite reads as used regardless of its expiry date.
func (i Invite) Status(now time.Time) InviteStatus {
	if i.Uses >= i.MaxUses {
		return InviteStatusUsed
	}
	if now.After(i.ExpiresAt) {
		return InviteStatusExpired
	}
	return InviteStatusPending
}
