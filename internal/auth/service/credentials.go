package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
	"github.com/sysdesk/sysdesk/internal/auth/store"
	"github.com/sysdesk/sysdesk/pkg/cryptox"
	"github.com/sysdesk/sysdesk/pkg/slogx"
)

const (
	// DefaultMaxLoginAttempts is the number of consecutive failures that
	// locks an account.
	DefaultMaxLoginAttempts = 5

	// DefaultLockoutDuration is how long a locked account stays locked.
	DefaultLockoutDuration = 30 * time.Minute
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountLocked      = errors.New("account_locked")
	ErrAccountInactive    = errors.New("account_inactive")
	ErrTenantInactive     = errors.New("tenant_inactive")
)

// LockedError carries the lock expiry so callers can surface a retry-after
// hint. errors.Is(err, ErrAccountLocked) matches it.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account_locked until %s", e.Until.Format(time.RFC3339))
}

func (e *LockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// RetryAfter returns the remaining lock duration at now, floored to zero.
func (e *LockedError) RetryAfter(now time.Time) time.Duration {
	if d := e.Until.Sub(now); d > 0 {
		return d
	}
	return 0
}

// CredentialService verifies passwords and enforces the lockout policy.
// Failure counting goes through the store's atomic increment so concurrent
// bad attempts cannot under-count past the threshold.
type CredentialService struct {
	Store           store.Store
	Hasher          *cryptox.Hasher
	MaxAttempts     int
	LockoutDuration time.Duration
}

func (s *CredentialService) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return DefaultMaxLoginAttempts
}

func (s *CredentialService) lockoutDuration() time.Duration {
	if s.LockoutDuration > 0 {
		return s.LockoutDuration
	}
	return DefaultLockoutDuration
}

// Verify checks a tenant-scoped email+password pair.
//
// Unknown emails still burn a bcrypt comparison before failing, so the
// response time does not reveal whether the account exists. A lock that has
// already expired is ignored; the successful path clears it together with
// the failure counter.
func (s *CredentialService) Verify(ctx context.Context, tenantID, email, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)
	now := time.Now()

	user, err := s.Store.Users().GetUserByEmail(ctx, tenantID, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Hasher.CompareDummy(ctx, password)
			log.Info("login attempt for unknown email",
				slog.String("tenant_id", tenantID),
			)
			return domain.User{}, ErrInvalidCredentials
		}
		log.Error("failed to fetch user", slog.Any("error", err))
		return domain.User{}, err
	}

	if user.Locked(now) {
		log.Warn("login attempt on locked account",
			slog.String("user_id", user.ID),
			slog.Time("locked_until", *user.LockedUntil),
		)
		return domain.User{}, &LockedError{Until: *user.LockedUntil}
	}

	if err := s.Hasher.Compare(ctx, user.PasswordHash, password); err != nil {
		if !errors.Is(err, cryptox.ErrMismatch) {
			return domain.User{}, err
		}

		attempts, lockedUntil, ferr := s.Store.Users().RecordLoginFailure(
			ctx, user.ID, s.maxAttempts(), now.Add(s.lockoutDuration()),
		)
		if ferr != nil {
			log.Error("failed to record login failure", slog.Any("error", ferr))
			return domain.User{}, ferr
		}

		if lockedUntil != nil {
			log.Warn("account locked after repeated failures",
				slog.String("user_id", user.ID),
				slog.Int("attempts", attempts),
				slog.Time("locked_until", *lockedUntil),
			)
			return domain.User{}, &LockedError{Until: *lockedUntil}
		}

		log.Info("password mismatch",
			slog.String("user_id", user.ID),
			slog.Int("attempts", attempts),
		)
		return domain.User{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		log.Warn("login attempt on deactivated account", slog.String("user_id", user.ID))
		return domain.User{}, ErrAccountInactive
	}

	tenant, err := s.Store.Tenants().GetTenantByID(ctx, user.TenantID)
	if err != nil {
		log.Error("failed to fetch tenant", slog.Any("error", err))
		return domain.User{}, err
	}
	if !tenant.IsActive {
		log.Warn("login attempt under inactive tenant",
			slog.String("user_id", user.ID),
			slog.String("tenant_id", tenant.ID),
		)
		return domain.User{}, ErrTenantInactive
	}

	if err := s.Store.Users().ResetLoginFailures(ctx, user.ID, now); err != nil {
		log.Error("failed to reset login failures", slog.Any("error", err))
		return domain.User{}, err
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now

	return user, nil
}
