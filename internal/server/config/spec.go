package config

import "time"

// ServerConfig is the root configuration for kvault-server.
type ServerConfig struct {
	Vault    VaultSection    `koanf:"vault" yaml:"vault" json:"vault"`
	Server   ServerSection   `koanf:"server" yaml:"server" json:"server"`
	Identity IdentitySection `koanf:"identity" yaml:"identity" json:"identity"`
	Log      LogSection      `koanf:"log" yaml:"log" json:"log"`
}

// VaultSection sizes the vault. None of it can change at runtime.
type VaultSection struct {
	// Users is the number of user directories (ordinals 1..Users).
	Users int `koanf:"users" yaml:"users" json:"users"`
	// KeySize is the key capacity in bytes.
	KeySize int `koanf:"key_size" yaml:"key_size" json:"key_size"`
	// ValueSize is the value capacity in bytes.
	ValueSize int `koanf:"value_size" yaml:"value_size" json:"value_size"`
	// MaxKeys is the maximum number of distinct keys per user.
	MaxKeys int `koanf:"max_keys" yaml:"max_keys" json:"max_keys"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP  HTTPConfig  `koanf:"http" yaml:"http" json:"http"`
	Redis RedisConfig `koanf:"redis" yaml:"redis" json:"redis"`
	Local LocalConfig `koanf:"local" yaml:"local" json:"local"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// HTTPConfig configures the operational HTTP server.
type HTTPConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled" json:"enabled"`
	Addr    string `koanf:"addr" yaml:"addr" json:"addr"`
	// AdminAllowList restricts /admin and /metrics to these IPs or CIDRs.
	AdminAllowList []string `koanf:"admin_allow_list" yaml:"admin_allow_list" json:"admin_allow_list"`
	// RateLimit is requests per second per client IP (0 = unlimited).
	RateLimit int `koanf:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RedisConfig configures the Redis protocol server.
type RedisConfig struct {
	Enabled bool `koanf:"enabled" yaml:"enabled" json:"enabled"`
	// Addr is the TCP listen address; empty disables TCP.
	Addr string `koanf:"addr" yaml:"addr" json:"addr"`
	// Socket is the Unix socket path; empty disables the socket.
	Socket       string        `koanf:"socket" yaml:"socket" json:"socket"`
	ReadTimeout  time.Duration `koanf:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout" yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" yaml:"idle_timeout" json:"idle_timeout"`
	// RateLimit is commands per second per client host (0 = unlimited).
	RateLimit int `koanf:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// LocalConfig configures the local management socket.
type LocalConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled" json:"enabled"`
	Path    string `koanf:"path" yaml:"path" json:"path"`
}

// IdentitySection configures how RESP clients map to user ordinals.
type IdentitySection struct {
	Principals []PrincipalConfig `koanf:"principals" yaml:"principals" json:"principals"`
	// AllowOrdinals accepts "AUTH <n>" for a bare user ordinal.
	AllowOrdinals bool `koanf:"allow_ordinals" yaml:"allow_ordinals" json:"allow_ordinals"`
	// RateLimit is AUTH attempts per second per principal (0 = unlimited).
	RateLimit int `koanf:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// PrincipalConfig is one named caller.
type PrincipalConfig struct {
	Name string `koanf:"name" yaml:"name" json:"name"`
	User int    `koanf:"user" yaml:"user" json:"user"`
	// SecretHash is produced by "kvault-cli hash-secret".
	SecretHash string `koanf:"secret_hash" yaml:"secret_hash" json:"secret_hash"`
}

// LogSection configures logging.
type LogSection struct {
	Level   string `koanf:"level" yaml:"level" json:"level"`
	Format  string `koanf:"format" yaml:"format" json:"format"`
	Backend string `koanf:"backend" yaml:"backend" json:"backend"`
}
