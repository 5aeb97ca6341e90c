package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/yndnr/keyvault-go/internal/core/domain"
	"github.com/yndnr/keyvault-go/internal/server/httpserver"
	"github.com/yndnr/keyvault-go/internal/telemetry/logger"
)

// Verify validates the configuration and reports every problem found.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyVault(&cfg.Vault),
		verifyServer(&cfg.Server),
		verifyIdentity(&cfg.Identity, cfg.Vault.Users),
		verifyLog(&cfg.Log),
	)
}

func verifyVault(cfg *VaultSection) error {
	var errs []error
	for _, f := range []struct {
		name  string
		value int
	}{
		{"vault.users", cfg.Users},
		{"vault.key_size", cfg.KeySize},
		{"vault.value_size", cfg.ValueSize},
		{"vault.max_keys", cfg.MaxKeys},
	} {
		if f.value < 1 {
			errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", f.name, f.value))
		}
	}
	return errors.Join(errs...)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error

	if cfg.Redis.Enabled {
		if cfg.Redis.Addr == "" && cfg.Redis.Socket == "" {
			errs = append(errs, errors.New("server.redis needs addr or socket when enabled"))
		}
		if err := verifyAddr("server.redis.addr", cfg.Redis.Addr); err != nil {
			errs = append(errs, err)
		}
		if cfg.Redis.RateLimit < 0 {
			errs = append(errs, errors.New("server.redis.rate_limit must not be negative"))
		}
	}
	if cfg.HTTP.Enabled {
		if cfg.HTTP.Addr == "" {
			errs = append(errs, errors.New("server.http.addr is required when enabled"))
		}
		if err := verifyAddr("server.http.addr", cfg.HTTP.Addr); err != nil {
			errs = append(errs, err)
		}
		if _, invalid := httpserver.ParseAllowList(cfg.HTTP.AdminAllowList); len(invalid) > 0 {
			errs = append(errs, fmt.Errorf("server.http.admin_allow_list: invalid entries %s", strings.Join(invalid, ", ")))
		}
	}
	if cfg.Local.Enabled && cfg.Local.Path == "" {
		errs = append(errs, errors.New("server.local.path is required when enabled"))
	}
	if cfg.Redis.Enabled && cfg.HTTP.Enabled && cfg.Redis.Addr == cfg.HTTP.Addr && fixedPort(cfg.Redis.Addr) {
		errs = append(errs, fmt.Errorf("server.redis.addr and server.http.addr conflict: %s", cfg.Redis.Addr))
	}
	if cfg.Redis.Enabled && cfg.Local.Enabled && cfg.Redis.Socket != "" && cfg.Redis.Socket == cfg.Local.Path {
		errs = append(errs, fmt.Errorf("server.redis.socket and server.local.path conflict: %s", cfg.Local.Path))
	}
	return errors.Join(errs...)
}

// fixedPort reports whether addr names a concrete port; ":0" asks the
// kernel for a free one and cannot conflict.
func fixedPort(addr string) bool {
	_, port, err := net.SplitHostPort(addr)
	return err == nil && port != "" && port != "0"
}

func verifyAddr(name, addr string) error {
	if addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func verifyIdentity(cfg *IdentitySection, users int) error {
	var errs []error
	seen := make(map[string]bool, len(cfg.Principals))
	for i, p := range cfg.Principals {
		switch {
		case p.Name == "":
			errs = append(errs, fmt.Errorf("identity.principals[%d]: name is required", i))
			continue
		case seen[p.Name]:
			errs = append(errs, fmt.Errorf("identity.principals[%d]: duplicate principal %q", i, p.Name))
		}
		seen[p.Name] = true

		if p.User < 1 || p.User > users {
			errs = append(errs, fmt.Errorf("identity.principals[%d]: user %d outside [1, %d]", i, p.User, users))
		}
		if p.SecretHash != "" && !domain.IsSecretHash(p.SecretHash) {
			errs = append(errs, fmt.Errorf("identity.principals[%d]: secret_hash is not an argon2id hash", i))
		}
	}
	if cfg.RateLimit < 0 {
		errs = append(errs, errors.New("identity.rate_limit must not be negative"))
	}
	return errors.Join(errs...)
}

func verifyLog(cfg *LogSection) error {
	var errs []error
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(cfg.Format) {
	case "", "json", "text", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not json or text", cfg.Format))
	}
	switch strings.ToLower(cfg.Backend) {
	case "", "slog", "zap":
	default:
		errs = append(errs, fmt.Errorf("log.backend %q is not slog or zap", cfg.Backend))
	}
	return errors.Join(errs...)
}
