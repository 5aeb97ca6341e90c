package config

import (
	"time"

	"github.com/yndnr/keyvault-go/internal/core/service"
	"github.com/yndnr/keyvault-go/internal/core/vault"
	"github.com/yndnr/keyvault-go/internal/infra/confloader"
	"github.com/yndnr/keyvault-go/internal/server/redisserver"
	"github.com/yndnr/keyvault-go/internal/telemetry/logger"
)

// Load layers defaults, the loader's file and environment, then flags,
// and verifies the result. flags may be nil.
func Load(l *confloader.Loader, flags map[string]any) (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if err := l.Load(cfg, Default(), flags); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Limits returns the vault capacities.
func (c *ServerConfig) Limits() vault.Limits {
	return vault.Limits{
		KeySize:   c.Vault.KeySize,
		ValueSize: c.Vault.ValueSize,
		MaxKeys:   c.Vault.MaxKeys,
	}
}

// IdentityConfig converts the identity section for service.IdentityResolver.
func (c *ServerConfig) IdentityConfig() service.IdentityConfig {
	principals := make([]service.Principal, len(c.Identity.Principals))
	for i, p := range c.Identity.Principals {
		principals[i] = service.Principal{Name: p.Name, User: p.User, SecretHash: p.SecretHash}
	}
	return service.IdentityConfig{
		Principals:             principals,
		AllowAnonymousOrdinals: c.Identity.AllowOrdinals,
		RateLimit:              c.Identity.RateLimit,
	}
}

// RedisServerConfig converts the redis section for redisserver.New.
func (c *ServerConfig) RedisServerConfig() *redisserver.Config {
	r := c.Server.Redis
	return &redisserver.Config{
		Address:      r.Addr,
		Socket:       r.Socket,
		ReadTimeout:  r.ReadTimeout,
		WriteTimeout: r.WriteTimeout,
		IdleTimeout:  r.IdleTimeout,
		RateLimit:    r.RateLimit,
	}
}

// LoggerConfig converts the log section for logger.New.
func (c *ServerConfig) LoggerConfig() logger.Config {
	lc := logger.DefaultConfig()
	if c.Log.Level != "" {
		lc.Level = c.Log.Level
	}
	if c.Log.Format != "" {
		lc.Format = c.Log.Format
	}
	if c.Log.Backend != "" {
		lc.Backend = c.Log.Backend
	}
	return lc
}

// ShutdownTimeout returns the graceful shutdown bound, defaulting when unset.
func (c *ServerConfig) ShutdownTimeout() time.Duration {
	if c.Server.ShutdownTimeout <= 0 {
		return DefaultShutdownTimeout
	}
	return c.Server.ShutdownTimeout
}
