package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
)

// Config is parsed straight from the environment. Secrets are required and
// must differ per token class; everything else has a sensible default.
type Config struct {
	Issuer string `env:"SYSDESK_ISSUER" envDefault:"sysdesk-auth"`

	AccessSecret  string `env:"SYSDESK_ACCESS_SECRET,required"`
	RefreshSecret string `env:"SYSDESK_REFRESH_SECRET,required"`

	AccessTTL  time.Duration `env:"SYSDESK_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"SYSDESK_REFRESH_TTL" envDefault:"168h"`

	BcryptCost  int `env:"SYSDESK_BCRYPT_COST" envDefault:"12"`
	HashWorkers int `env:"HASH_WORKERS" envDefault:"0"`

	MaxLoginAttempts int           `env:"SYSDESK_MAX_LOGIN_ATTEMPTS" envDefault:"5"`
	LockoutDuration  time.Duration `env:"SYSDESK_LOCKOUT_DURATION" envDefault:"30m"`

	InviteTTL time.Duration `env:"SYSDESK_INVITE_TTL" envDefault:"168h"`

	// AuthzMode is "hierarchical" (rank at or above the minimum required
	// role passes) or "exact" (role must be literally in the allowed set).
	AuthzMode string `env:"SYSDESK_AUTHZ_MODE" envDefault:"hierarchical"`

	DatabaseFile string `env:"DATABASE_FILE" envDefault:"sysdesk.db"`

	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Port      int    `env:"PORT" envDefault:"8080"`

	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

// LoadConfig parses and validates the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("SYSDESK_ACCESS_SECRET and SYSDESK_REFRESH_SECRET must differ")
	}
	if _, ok := parseAuthzMode(c.AuthzMode); !ok {
		return fmt.Errorf("SYSDESK_AUTHZ_MODE must be hierarchical or exact, got %q", c.AuthzMode)
	}
	if c.AccessTTL >= c.RefreshTTL {
		return errors.New("SYSDESK_ACCESS_TTL must be shorter than SYSDESK_REFRESH_TTL")
	}
	return nil
}

func parseAuthzMode(s string) (domain.AuthzMode, bool) {
	switch s {
	case "", "hierarchical":
		return domain.ModeHierarchical, true
	case "exact":
		return domain.ModeExact, true
	default:
		return "", false
	}
}
