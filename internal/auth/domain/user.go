package domain

import "time"

// User is a tenant-scoped account. Email is unique within a tenant, not
// globally; the same address may exist under two companies.
type User struct {
	ID           string
	TenantID     string
	Email        string
	Name         string
	PasswordHash string // bcrypt encoded
	Role         Role
	IsActive     bool

	// Lockout state. FailedLoginAttempts is only ever mutated through atomic
	// store updates; LockedUntil is set when the attempt threshold is reached
	// and cleared together with the counter on successful authentication.
	FailedLoginAttempts int
	LockedUntil         *time.Time

	LastLoginAt    *time.Time
	LastActivityAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Locked reports whether the account is locked out at the given instant.
func (u User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
