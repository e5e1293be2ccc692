package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
	"github.com/sysdesk/sysdesk/internal/auth/store"
	"github.com/sysdesk/sysdesk/internal/auth/store/drivers/sqlite"
	"github.com/sysdesk/sysdesk/pkg/cryptox"
	"github.com/sysdesk/sysdesk/pkg/idx"
	"github.com/sysdesk/sysdesk/pkg/jwtx"
)

const testIssuer = "sysdesk-test"

type testEnv struct {
	store     store.Store
	hasher    *cryptox.Hasher
	creds     *CredentialService
	tokens    *TokenService
	sessions  *SessionService
	invites   *InviteService
	bootstrap *BootstrapService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	access, err := jwtx.NewSigner([]byte("test-access-secret"), jwtx.ClassAccess, testIssuer)
	require.NoError(t, err)
	refresh, err := jwtx.NewSigner([]byte("test-refresh-secret"), jwtx.ClassRefresh, testIssuer)
	require.NoError(t, err)

	hasher := cryptox.NewHasher(bcrypt.MinCost, 2)
	creds := &CredentialService{
		Store:           st,
		Hasher:          hasher,
		MaxAttempts:     5,
		LockoutDuration: 30 * time.Minute,
	}

	return &testEnv{
		store:  st,
		hasher: hasher,
		creds:  creds,
		tokens: &TokenService{
			Store:         st,
			Credentials:   creds,
			AccessSigner:  access,
			RefreshSigner: refresh,
			Issuer:        testIssuer,
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
		},
		sessions:  &SessionService{Store: st, AccessSigner: access},
		invites:   &InviteService{Store: st, Hasher: hasher},
		bootstrap: &BootstrapService{Store: st, Hasher: hasher},
	}
}

// seedUser creates an active tenant and one user under it with the given
// password and role.
func (e *testEnv) seedUser(t *testing.T, email, password string, role domain.Role) (domain.Tenant, domain.User) {
	t.Helper()
	ctx := context.Background()

	tenant := domain.Tenant{ID: idx.New().String(), Name: "Acme", IsActive: true}
	require.NoError(t, e.store.Tenants().CreateTenant(ctx, tenant))

	hash, err := e.hasher.Hash(ctx, password)
	require.NoError(t, err)

	user := domain.User{
		ID:           idx.New().String(),
		TenantID:     tenant.ID,
		Email:        email,
		Name:         "Someone",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, e.store.Users().CreateUser(ctx, user))
	return tenant, user
}
