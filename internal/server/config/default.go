package config

import (
	"time"

	"github.com/yndnr/keyvault-go/internal/core/vault"
)

// Default configuration values.
const (
	DefaultUsers = 16

	DefaultHTTPAddr    = "127.0.0.1:5080"
	DefaultRedisAddr   = "127.0.0.1:6399"
	DefaultLocalSocket = "/var/run/kvault-server/kvault-server.sock"

	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 5 * time.Minute
	DefaultRedisRateLimit  = 1000
	DefaultHTTPRateLimit   = 100
	DefaultAuthRateLimit   = 10
	DefaultShutdownTimeout = 10 * time.Second

	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
	DefaultLogBackend = "slog"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Vault: VaultSection{
			Users:     DefaultUsers,
			KeySize:   vault.DefaultKeySize,
			ValueSize: vault.DefaultValueSize,
			MaxKeys:   vault.DefaultMaxKeys,
		},
		Server: ServerSection{
			HTTP: HTTPConfig{
				Enabled:        true,
				Addr:           DefaultHTTPAddr,
				AdminAllowList: []string{"127.0.0.1", "::1"},
				RateLimit:      DefaultHTTPRateLimit,
			},
			Redis: RedisConfig{
				Enabled:      true,
				Addr:         DefaultRedisAddr,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				IdleTimeout:  DefaultIdleTimeout,
				RateLimit:    DefaultRedisRateLimit,
			},
			Local: LocalConfig{
				Enabled: true,
				Path:    DefaultLocalSocket,
			},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Identity: IdentitySection{
			RateLimit: DefaultAuthRateLimit,
		},
		Log: LogSection{
			Level:   DefaultLogLevel,
			Format:  DefaultLogFormat,
			Backend: DefaultLogBackend,
		},
	}
}
