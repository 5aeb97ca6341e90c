package httpserver

import (
	"net/http"

	"github.com/yndnr/keyvault-go/internal/server/httpserver/handler"
	"github.com/yndnr/keyvault-go/internal/telemetry/logger"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Device serves health and admin counters.
	Device handler.Device

	// Metrics serves /metrics. Nil disables the endpoint.
	Metrics http.Handler

	// Logger for request logging.
	Logger logger.Logger

	// AdminAllowList is the IP/CIDR allowlist for admin and metrics
	// endpoints (empty = no restriction).
	AdminAllowList []string

	// GlobalRateLimit is the global rate limit per IP (requests/second).
	// Zero disables rate limiting.
	GlobalRateLimit int

	// EnableAudit enables per-request logging.
	EnableAudit bool
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	h := handler.New(cfg.Device, log)

	// Order: Recover -> RequestID -> RateLimit -> Audit -> Handler
	base := []Middleware{Recover(log), RequestID()}
	if cfg.GlobalRateLimit > 0 {
		base = append(base, RateLimit(cfg.GlobalRateLimit))
	}
	if cfg.EnableAudit {
		base = append(base, Audit(log))
	}

	restricted := append(append([]Middleware{}, base...), AdminACL(cfg.AdminAllowList, log))

	mux := http.NewServeMux()

	public := Chain(h, base...)
	mux.Handle("GET /health", public)
	mux.Handle("GET /ready", public)

	mux.Handle("GET /admin/v1/", Chain(h, restricted...))

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics, restricted...))
	}

	return mux
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		AdminAllowList:  []string{"127.0.0.1", "::1"},
		GlobalRateLimit: 1000,
		EnableAudit:     true,
	}
}
