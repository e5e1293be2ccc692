package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SYSDESK_ACCESS_SECRET", "access-secret")
	t.Setenv("SYSDESK_REFRESH_SECRET", "refresh-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "sysdesk-auth", cfg.Issuer)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, 168*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 12, cfg.BcryptCost)
	require.Equal(t, 5, cfg.MaxLoginAttempts)
	require.Equal(t, 30*time.Minute, cfg.LockoutDuration)
	require.Equal(t, 168*time.Hour, cfg.InviteTTL)
	require.Equal(t, "hierarchical", cfg.AuthzMode)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, time.Hour, cfg.HousekeepingInterval)
}

func TestLoadConfigMissingSecrets(t *testing.T) {
	t.Setenv("SYSDESK_ACCESS_SECRET", "")
	t.Setenv("SYSDESK_REFRESH_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsSharedSecret(t *testing.T) {
	t.Setenv("SYSDESK_ACCESS_SECRET", "same")
	t.Setenv("SYSDESK_REFRESH_SECRET", "same")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsBadAuthzMode(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SYSDESK_AUTHZ_MODE", "vibes")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsInvertedTTLs(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SYSDESK_ACCESS_TTL", "48h")
	t.Setenv("SYSDESK_REFRESH_TTL", "24h")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestParseAuthzMode(t *testing.T) {
	t.Parallel()

	mode, ok := parseAuthzMode("hierarchical")
	require.True(t, ok)
	require.Equal(t, domain.ModeHierarchical, mode)

	mode, ok = parseAuthzMode("exact")
	require.True(t, ok)
	require.Equal(t, domain.ModeExact, mode)

	_, ok = parseAuthzMode("other")
	require.False(t, ok)
}
