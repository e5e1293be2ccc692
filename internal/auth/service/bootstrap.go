package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
	"github.com/sysdesk/sysdesk/internal/auth/store"
	"github.com/sysdesk/sysdesk/pkg/cryptox"
	"github.com/sysdesk/sysdesk/pkg/idx"
	"github.com/sysdesk/sysdesk/pkg/slogx"
)

var (
	ErrAlreadyBootstrapped = errors.New("system already bootstrapped")
	ErrInvalidSeedRequest  = errors.New("invalid seed request")
)

// BootstrapService creates the first tenant and its master admin. It only
// runs against an empty user table; every later account enters through an
// invite. This breaks the chicken-and-egg problem of invite-only signup.
type BootstrapService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
}

// Seed creates the first tenant and master admin atomically. The emptiness
// check repeats inside the transaction so two racing seeds cannot both win.
func (s *BootstrapService) Seed(ctx context.Context, tenantName, email, password string) (domain.Tenant, domain.User, error) {
	log := slogx.FromContext(ctx)

	tenantName = strings.TrimSpace(tenantName)
	email = strings.ToLower(strings.TrimSpace(email))
	if tenantName == "" || email == "" || password == "" {
		return domain.Tenant{}, domain.User{}, ErrInvalidSeedRequest
	}

	count, err := s.Store.Users().CountUsers(ctx)
	if err != nil {
		log.Error("failed to count users", slog.Any("error", err))
		return domain.Tenant{}, domain.User{}, err
	}
	if count > 0 {
		return domain.Tenant{}, domain.User{}, ErrAlreadyBootstrapped
	}

	hash, err := s.Hasher.Hash(ctx, password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.Tenant{}, domain.User{}, err
	}

	tenant := domain.Tenant{
		ID:       idx.New().String(),
		Name:     tenantName,
		IsActive: true,
	}
	user := domain.User{
		ID:           idx.New().String(),
		TenantID:     tenant.ID,
		Email:        email,
		Name:         tenantName + " Admin",
		PasswordHash: hash,
		Role:         domain.RoleMasterAdmin,
		IsActive:     true,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.Users().CountUsers(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyBootstrapped
		}
		if err := tx.Tenants().CreateTenant(ctx, tenant); err != nil {
			return err
		}
		return tx.Users().CreateUser(ctx, user)
	})
	if err != nil {
		if !errors.Is(err, ErrAlreadyBootstrapped) {
			log.Error("bootstrap failed", slog.Any("error", err))
		}
		return domain.Tenant{}, domain.User{}, err
	}

	log.Info("system bootstrapped",
		slog.String("tenant_id", tenant.ID),
		slog.String("user_id", user.ID),
	)
	return tenant, user, nil
}
