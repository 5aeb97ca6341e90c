package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "KVAULT_"

// Source names reported by Loader.Sources.
const (
	SourceDefaults = "defaults"
	SourceFile     = "file"
	SourceEnv      = "env"
	SourceFlags    = "flags"
)

// Loader layers configuration sources into one koanf tree. A Loader is
// single-use: build a new one for every reload.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	sources   []string
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the YAML file layered over the defaults. An empty
// path skips the file layer.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FilePath returns the configured file path.
func (l *Loader) FilePath() string {
	return l.filePath
}

// Load applies defaults, the file, the environment and flags, in that
// order, and decodes the result into target once. defaults and flags may
// be nil. Flag keys are dotted ("vault.max_keys").
func (l *Loader) Load(target, defaults any, flags map[string]any) error {
	if defaults != nil {
		if err := l.loadDefaults(defaults); err != nil {
			return err
		}
	}
	if l.filePath != "" {
		if err := l.loadFile(l.filePath); err != nil {
			return err
		}
	}
	if err := l.loadEnv(); err != nil {
		return err
	}
	if len(flags) > 0 {
		if err := l.loadFlags(flags); err != nil {
			return err
		}
	}

	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// Sources lists the layers that contributed to the last Load, lowest
// priority first.
func (l *Loader) Sources() []string {
	return append([]string(nil), l.sources...)
}

// Value returns the merged value at a dotted key, or nil.
func (l *Loader) Value(key string) any {
	return l.k.Get(key)
}

// loadDefaults loads v as the lowest-priority layer. v is serialized with
// its yaml tags, which must match its koanf tags.
func (l *Loader) loadDefaults(v any) error {
	b, err := yamlv3.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	if err := l.k.Load(bytesProvider(b), yaml.Parser()); err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}
	l.sources = append(l.sources, SourceDefaults)
	return nil
}

func (l *Loader) loadFile(path string) error {
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load config file %s: %w", path, err)
	}
	l.sources = append(l.sources, SourceFile+":"+path)
	return nil
}

// loadEnv maps KVAULT_SERVER_REDIS_RATE_LIMIT to server.redis.rate_limit
// when that key is already known, and to server.redis.rate.limit otherwise.
// Keys are known once defaults or the file have been loaded.
func (l *Loader) loadEnv() error {
	known := make(map[string]string)
	for _, key := range l.k.Keys() {
		known[strings.ReplaceAll(key, ".", "_")] = key
	}

	seen := false
	transform := func(s string) string {
		seen = true
		s = strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
		if key, ok := known[s]; ok {
			return key
		}
		return strings.ReplaceAll(s, "_", ".")
	}

	if err := l.k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	if seen {
		l.sources = append(l.sources, SourceEnv)
	}
	return nil
}

func (l *Loader) loadFlags(flags map[string]any) error {
	if err := l.k.Load(mapProvider(flags), nil); err != nil {
		return fmt.Errorf("load flags: %w", err)
	}
	l.sources = append(l.sources, SourceFlags)
	return nil
}
