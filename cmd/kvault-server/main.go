package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/keyvault-go/internal/core/service"
	"github.com/yndnr/keyvault-go/internal/core/vault"
	"github.com/yndnr/keyvault-go/internal/infra/buildinfo"
	"github.com/yndnr/keyvault-go/internal/infra/confloader"
	"github.com/yndnr/keyvault-go/internal/infra/shutdown"
	"github.com/yndnr/keyvault-go/internal/server/config"
	"github.com/yndnr/keyvault-go/internal/server/httpserver"
	"github.com/yndnr/keyvault-go/internal/server/localserver"
	"github.com/yndnr/keyvault-go/internal/server/redisserver"
	"github.com/yndnr/keyvault-go/internal/telemetry/logger"
	"github.com/yndnr/keyvault-go/internal/telemetry/metric"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "kvault-server",
		Usage:   "In-memory per-user key vault server",
		Version: buildinfo.Get().String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				EnvVars: []string{"KVAULT_CONFIG"},
			},
			&cli.IntFlag{Name: "users", Usage: "Number of users (vault.users)"},
			&cli.IntFlag{Name: "key-size", Usage: "Key capacity in bytes (vault.key_size)"},
			&cli.IntFlag{Name: "value-size", Usage: "Value capacity in bytes (vault.value_size)"},
			&cli.IntFlag{Name: "max-keys", Usage: "Distinct keys per user (vault.max_keys)"},
			&cli.StringFlag{Name: "redis-addr", Usage: "RESP TCP address (server.redis.addr)"},
			&cli.StringFlag{Name: "redis-socket", Usage: "RESP unix socket (server.redis.socket)"},
			&cli.StringFlag{Name: "http-addr", Usage: "HTTP address (server.http.addr)"},
			&cli.StringFlag{Name: "local-socket", Usage: "Admin socket path (server.local.path)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (log.level)"},
			&cli.StringFlag{Name: "log-format", Usage: "json or text (log.format)"},
			&cli.DurationFlag{Name: "shutdown-timeout", Usage: "Graceful shutdown bound (server.shutdown_timeout)"},
		},
		Action: run,
	}
}

// flagOverrides maps the flags given on the command line onto config keys.
func flagOverrides(c *cli.Context) map[string]any {
	m := make(map[string]any)
	set := func(flag, key string, v any) {
		if c.IsSet(flag) {
			m[key] = v
		}
	}
	set("users", "vault.users", c.Int("users"))
	set("key-size", "vault.key_size", c.Int("key-size"))
	set("value-size", "vault.value_size", c.Int("value-size"))
	set("max-keys", "vault.max_keys", c.Int("max-keys"))
	set("redis-addr", "server.redis.addr", c.String("redis-addr"))
	set("redis-socket", "server.redis.socket", c.String("redis-socket"))
	set("http-addr", "server.http.addr", c.String("http-addr"))
	set("local-socket", "server.local.path", c.String("local-socket"))
	set("log-level", "log.level", c.String("log-level"))
	set("log-format", "log.format", c.String("log-format"))
	set("shutdown-timeout", "server.shutdown_timeout", c.Duration("shutdown-timeout"))
	return m
}

// loadConfig also returns the layers that contributed to the result.
func loadConfig(path string, flags map[string]any) (*config.ServerConfig, []string, error) {
	l := confloader.NewLoader(confloader.WithConfigFile(path))
	cfg, err := config.Load(l, flags)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, l.Sources(), nil
}

func run(c *cli.Context) error {
	path := c.String("config")
	flags := flagOverrides(c)

	cfg, sources, err := loadConfig(path, flags)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting kvault-server",
		"version", info.Version,
		"commit", info.Commit,
		"config_sources", sources)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	d, err := newDaemon(cfg, log)
	if err != nil {
		return err
	}
	d.configPath, d.flags = path, flags

	if err := d.start(c.Context); err != nil {
		d.shutdown.Trigger()
		_ = d.shutdown.Wait()
		return err
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := d.shutdown.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// daemon owns every running component of one server process.
type daemon struct {
	cfg        *config.ServerConfig
	log        logger.Logger
	configPath string
	flags      map[string]any

	device   *service.Device
	resolver *service.IdentityResolver
	metrics  *metric.Registry
	redis    *redisserver.Server
	local    *localserver.Server
	http     *httpserver.Server
	watcher  *confloader.Watcher
	shutdown *shutdown.Handler
}

// newDaemon builds the vault, device and identity layers. Nothing listens
// until start.
func newDaemon(cfg *config.ServerConfig, log logger.Logger) (*daemon, error) {
	v, err := vault.New(cfg.Vault.Users, vault.WithLimits(cfg.Limits()))
	if err != nil {
		return nil, fmt.Errorf("create vault: %w", err)
	}

	reg := metric.NewRegistry()
	dev := service.NewDevice(v,
		service.WithObserver(reg),
		service.WithLogger(log.With("component", "device")))
	reg.MustRegister(metric.NewCollector(dev))

	resolver, err := service.NewIdentityResolver(cfg.Vault.Users, cfg.IdentityConfig())
	if err != nil {
		dev.Shutdown()
		return nil, fmt.Errorf("identity: %w", err)
	}

	sh := shutdown.NewHandler(cfg.ShutdownTimeout())
	sh.SetLogger(log)
	sh.OnShutdown("device", func(context.Context) error {
		dev.Shutdown()
		return nil
	})

	log.Info("vault ready",
		"users", cfg.Vault.Users,
		"key_size", cfg.Vault.KeySize,
		"value_size", cfg.Vault.ValueSize,
		"max_keys", cfg.Vault.MaxKeys,
		"principals", len(cfg.Identity.Principals))

	return &daemon{
		cfg:      cfg,
		log:      log,
		device:   dev,
		resolver: resolver,
		metrics:  reg,
		shutdown: sh,
	}, nil
}

// start binds the enabled listeners and the config watcher. Each started
// component registers its shutdown hook, so a partial start unwinds cleanly.
func (d *daemon) start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	srv := d.cfg.Server

	if srv.Redis.Enabled {
		d.redis = redisserver.New(d.cfg.RedisServerConfig(), d.device, d.resolver,
			redisserver.WithConnObserver(d.metrics),
			redisserver.WithLogger(d.log.With("component", "redis")))
		if err := d.redis.Start(ctx); err != nil {
			return fmt.Errorf("start redis server: %w", err)
		}
		d.shutdown.OnShutdown("redis", d.redis.Shutdown)
	}

	if srv.Local.Enabled {
		d.local = localserver.New(srv.Local.Path, d.device,
			localserver.WithLogger(d.log.With("component", "local")))
		if err := d.local.Start(ctx); err != nil {
			return fmt.Errorf("start local server: %w", err)
		}
		d.shutdown.OnShutdown("local", d.local.Shutdown)
	}

	if srv.HTTP.Enabled {
		router := httpserver.NewRouter(&httpserver.RouterConfig{
			Device:          d.device,
			Metrics:         d.metrics.Handler(),
			Logger:          d.log.With("component", "http"),
			AdminAllowList:  srv.HTTP.AdminAllowList,
			GlobalRateLimit: srv.HTTP.RateLimit,
			EnableAudit:     true,
		})
		d.http = httpserver.New(srv.HTTP.Addr, router, d.log.With("component", "http"))
		if err := d.http.Start(); err != nil {
			return fmt.Errorf("start http server: %w", err)
		}
		d.shutdown.OnShutdown("http", d.http.Shutdown)
	}

	if d.configPath != "" {
		if err := d.watch(d.configPath); err != nil {
			// Serving continues without hot reload.
			d.log.Warn("config watcher disabled", "path", d.configPath, "error", err)
		}
	}
	return nil
}

func (d *daemon) watch(path string) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(d.log.With("component", "watcher")))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return err
	}
	w.OnChange(d.reload)
	w.StartAsync()
	d.watcher = w
	d.shutdown.OnShutdown("watcher", func(context.Context) error { return w.Stop() })
	return nil
}

// reload applies log.level and identity.principals from the changed file.
// A file that fails to load or verify leaves the running settings intact.
func (d *daemon) reload(path string) {
	cfg, sources, err := loadConfig(path, d.flags)
	if err != nil {
		d.log.Error("config reload rejected", "path", path, "error", err)
		return
	}

	logger.SetLevel(cfg.Log.Level)
	if err := d.resolver.Reload(cfg.IdentityConfig()); err != nil {
		d.log.Error("identity reload rejected", "path", path, "error", err)
		return
	}
	if cfg.Vault != d.cfg.Vault || cfg.Server.Redis.Addr != d.cfg.Server.Redis.Addr ||
		cfg.Server.HTTP.Addr != d.cfg.Server.HTTP.Addr || cfg.Server.Local.Path != d.cfg.Server.Local.Path {
		d.log.Warn("vault and listener settings changed; restart to apply", "path", path)
	}
	d.log.Info("config reloaded",
		"sources", sources,
		"log_level", cfg.Log.Level,
		"principals", len(cfg.Identity.Principals))
}
