package store

import (
	"context"
	"errors"
	"time"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today,
// postgres later) implement this. Sub-repositories keep concerns tidy and
// make transaction scoping explicit.
type Store interface {
	Users() Users
	Sessions() Sessions
	Invites() Invites
	Tenants() Tenants

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rolled back when fn errors,
	// committed otherwise. Preferred over Tx for multi-step operations that
	// must be atomic (invite consumption, session rotation).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks a user up by its tenant-scoped natural key.
	GetUserByEmail(ctx context.Context, tenantID, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists when the (tenant_id, email) key is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// RecordLoginFailure atomically increments failed_login_attempts and,
	// when the new count reaches threshold, sets locked_until to lockUntil.
	// The increment-and-compare happens in a single UPDATE so concurrent
	// failures can never under-count. Returns the post-update state.
	RecordLoginFailure(ctx context.Context, userID string, threshold int, lockUntil time.Time) (attempts int, lockedUntil *time.Time, err error)

	// ResetLoginFailures clears the failure counter and lock, and stamps
	// last_login_at, in one UPDATE.
	ResetLoginFailures(ctx context.Context, userID string, loginAt time.Time) error

	// UpdateLastActivity bumps last_activity_at.
	UpdateLastActivity(ctx context.Context, userID string, at time.Time) error

	// SetUserActive toggles the account (deactivation revokes nothing by
	// itself; the request-time session check makes it bite).
	SetUserActive(ctx context.Context, userID string, active bool) error

	// CountUsers returns the total number of users; used by the seed path.
	CountUsers(ctx context.Context) (int64, error)
}

type Sessions interface {
	// CreateSession stores a new session record.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByID returns a session regardless of state.
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// GetActiveSessionByRefreshHash returns the active, unexpired session
	// holding the given refresh token fingerprint.
	GetActiveSessionByRefreshHash(ctx context.Context, hash string) (domain.Session, error)

	// RotateSession revokes the active session holding oldRefreshHash and
	// inserts next, as one conditional operation. Of two concurrent calls
	// with the same oldRefreshHash exactly one wins; the loser gets
	// ErrNotFound. Call inside WithTx.
	RotateSession(ctx context.Context, oldRefreshHash string, revokedAt time.Time, next domain.Session) error

	// RevokeSession soft-revokes a single session.
	RevokeSession(ctx context.Context, id, reason string, at time.Time) error

	// RevokeAllUserSessions bulk-revokes every active session for a user
	// (logout-all, password reset) and returns how many were revoked.
	RevokeAllUserSessions(ctx context.Context, userID, reason string, at time.Time) (int64, error)

	// SweepExpiredSessions marks expired-but-still-active rows inactive.
	// Idempotent; safe to run concurrently from multiple instances.
	SweepExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type Invites interface {
	// CreateInvite writes a new invite (token_hash is the SHA-256
	// fingerprint of the opaque invite token).
	CreateInvite(ctx context.Context, inv domain.Invite) error

	// GetInviteByID returns an invite by id.
	GetInviteByID(ctx context.Context, id string) (domain.Invite, error)

	// GetInviteByTokenHash returns an invite by fingerprint regardless of
	// state; callers classify via domain.Invite.Status.
	GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error)

	// FindPendingInviteByEmail returns an unexpired, non-exhausted invite
	// for the tenant+email pair, if any. Used for conflict detection.
	FindPendingInviteByEmail(ctx context.Context, tenantID, email string, now time.Time) (domain.Invite, error)

	// ConsumeInvite increments uses by one, conditional on the invite still
	// being pending (uses < max_uses AND unexpired). The final use stamps
	// used_at/used_by_user_id. Lost races and stale invites return
	// ErrNotFound. Call inside WithTx alongside the user insert.
	ConsumeInvite(ctx context.Context, id, usedByUserID string, now time.Time) (domain.Invite, error)

	// DeleteInvite removes a tenant's invite, conditional on uses == 0.
	// ErrNotFound when no such untouched invite exists in the tenant.
	DeleteInvite(ctx context.Context, tenantID, id string) error
}

type Tenants interface {
	// GetTenantByID returns a tenant by id.
	GetTenantByID(ctx context.Context, id string) (domain.Tenant, error)

	// CreateTenant inserts a new tenant.
	CreateTenant(ctx context.Context, t domain.Tenant) error
}
