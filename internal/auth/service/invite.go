package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
	"github.com/sysdesk/sysdesk/internal/auth/store"
	"github.com/sysdesk/sysdesk/pkg/cryptox"
	"github.com/sysdesk/sysdesk/pkg/idx"
	"github.com/sysdesk/sysdesk/pkg/slogx"
)

// DefaultInviteTTL is how long a fresh invite stays redeemable.
const DefaultInviteTTL = 7 * 24 * time.Hour

var (
	ErrInvalidInviteRequest = errors.New("invalid invite request")
	ErrRoleEscalation       = errors.New("forbidden role escalation")
	ErrInviteNotFound       = errors.New("invite not found")
	ErrInviteExpired        = errors.New("invite expired")
	ErrInviteUsed           = errors.New("invite already used")
	ErrInviteInUse          = errors.New("invite has been used and cannot be deleted")
	ErrEmailTaken           = errors.New("email already registered")
	ErrActiveInviteExists   = errors.New("an active invite for this email already exists")
)

// InviteService manages invite-gated registration. Invites are scoped to the
// inviter's tenant, cap the granted role at the inviter's own rank, and move
// through a one-way state machine (pending, then used or expired; deletion
// is only legal while untouched).
type InviteService struct {
	Store     store.Store
	Hasher    *cryptox.Hasher
	InviteTTL time.Duration
}

func (s *InviteService) inviteTTL() time.Duration {
	if s.InviteTTL > 0 {
		return s.InviteTTL
	}
	return DefaultInviteTTL
}

// Create mints an invite and returns it together with the raw opaque token.
// Only the token's fingerprint is stored; the raw token is shown once.
func (s *InviteService) Create(
	ctx context.Context,
	inviter domain.User,
	email string,
	role domain.Role,
	maxUses int,
	expiresAt time.Time,
) (domain.Invite, string, error) {
	log := slogx.FromContext(ctx)
	now := time.Now()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.Invite{}, "", ErrInvalidInviteRequest
	}
	if !role.Valid() {
		return domain.Invite{}, "", ErrInvalidInviteRequest
	}
	if maxUses <= 0 {
		maxUses = 1
	}
	if expiresAt.IsZero() {
		expiresAt = now.Add(s.inviteTTL())
	}
	if !expiresAt.After(now) {
		return domain.Invite{}, "", ErrInvalidInviteRequest
	}

	// An inviter may never grant a role above their own.
	if !inviter.Role.CanManage(role) {
		log.Warn("invite role escalation attempt",
			slog.String("inviter_id", inviter.ID),
			slog.String("inviter_role", string(inviter.Role)),
			slog.String("requested_role", string(role)),
		)
		return domain.Invite{}, "", ErrRoleEscalation
	}

	// A deactivated row still holds the tenant-scoped unique email, so an
	// invite for it could never be consumed. Reject both states up front.
	_, err := s.Store.Users().GetUserByEmail(ctx, inviter.TenantID, email)
	switch {
	case err == nil:
		return domain.Invite{}, "", ErrEmailTaken
	case !errors.Is(err, store.ErrNotFound):
		log.Error("failed to check existing user", slog.Any("error", err))
		return domain.Invite{}, "", err
	}

	_, err = s.Store.Invites().FindPendingInviteByEmail(ctx, inviter.TenantID, email, now)
	switch {
	case err == nil:
		return domain.Invite{}, "", ErrActiveInviteExists
	case !errors.Is(err, store.ErrNotFound):
		log.Error("failed to check pending invites", slog.Any("error", err))
		return domain.Invite{}, "", err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate invite token", slog.Any("error", err))
		return domain.Invite{}, "", err
	}

	invite := domain.Invite{
		ID:              idx.New().String(),
		TenantID:        inviter.TenantID,
		Email:           email,
		Role:            role,
		InvitedByUserID: inviter.ID,
		TokenHash:       cryptox.FingerprintToken(token),
		MaxUses:         maxUses,
		ExpiresAt:       expiresAt,
	}

	if err := s.Store.Invites().CreateInvite(ctx, invite); err != nil {
		log.Error("failed to create invite", slog.Any("error", err))
		return domain.Invite{}, "", err
	}

	log.Info("invite created",
		slog.String("invite_id", invite.ID),
		slog.String("tenant_id", invite.TenantID),
		slog.String("role", string(role)),
		slog.Int("max_uses", maxUses),
		slog.Time("expires_at", expiresAt),
	)
	return invite, token, nil
}

// Validate classifies an invite token without mutating anything. Unknown
// and cancelled tokens read identically as not found.
func (s *InviteService) Validate(ctx context.Context, token string) (domain.Invite, domain.InviteStatus, error) {
	invite, err := s.Store.Invites().GetInviteByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, "", ErrInviteNotFound
		}
		return domain.Invite{}, "", err
	}
	return invite, invite.Status(time.Now()), nil
}

// Consume redeems a pending invite and creates the new account, as one
// transaction. The password is hashed before the transaction opens; bcrypt
// has no business running while a write tx is held. A lost race on the final
// use rolls the user insert back, so partial application is not observable.
func (s *InviteService) Consume(ctx context.Context, token, name, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)
	now := time.Now()

	if token == "" || password == "" {
		return domain.User{}, ErrInvalidInviteRequest
	}

	invite, status, err := s.Validate(ctx, token)
	if err != nil {
		return domain.User{}, err
	}
	switch status {
	case domain.InviteStatusUsed:
		return domain.User{}, ErrInviteUsed
	case domain.InviteStatusExpired:
		return domain.User{}, ErrInviteExpired
	}

	hash, err := s.Hasher.Hash(ctx, password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		TenantID:     invite.TenantID,
		Email:        invite.Email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         invite.Role,
		IsActive:     true,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return err
		}
		if _, err := tx.Invites().ConsumeInvite(ctx, invite.ID, user.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Raced with another consume or expired between read and tx.
				return ErrInviteUsed
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInviteUsed) || errors.Is(err, ErrEmailTaken) {
			log.Warn("invite consumption rejected",
				slog.String("invite_id", invite.ID),
				slog.Any("reason", err),
			)
		} else {
			log.Error("invite consumption failed", slog.Any("error", err))
		}
		return domain.User{}, err
	}

	log.Info("invite consumed",
		slog.String("invite_id", invite.ID),
		slog.String("user_id", user.ID),
		slog.String("tenant_id", user.TenantID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// Delete cancels an untouched invite within the caller's tenant. Once any
// use has been recorded the invite is audit history and stays. Invites of
// other tenants read as not found.
func (s *InviteService) Delete(ctx context.Context, tenantID, id string) error {
	log := slogx.FromContext(ctx)

	err := s.Store.Invites().DeleteInvite(ctx, tenantID, id)
	if err == nil {
		log.Info("invite cancelled",
			slog.String("invite_id", id),
			slog.String("tenant_id", tenantID),
		)
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to delete invite", slog.Any("error", err))
		return err
	}

	// Distinguish "never existed" from "already used". A foreign tenant's
	// invite stays indistinguishable from a missing one.
	invite, gerr := s.Store.Invites().GetInviteByID(ctx, id)
	if gerr != nil {
		if errors.Is(gerr, store.ErrNotFound) {
			return ErrInviteNotFound
		}
		return gerr
	}
	if invite.TenantID != tenantID {
		return ErrInviteNotFound
	}
	if invite.Uses > 0 {
		return ErrInviteInUse
	}
	return err
}
