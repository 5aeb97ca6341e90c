package service

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/time/rate"

	"github.com/yndnr/keyvault-go/internal/core/domain"
)

// Principal binds a named caller to a user ordinal.
type Principal struct {
	Name string
	User int
	// SecretHash is an argon2id hash from domain.HashSecret. Empty means the
	// principal authenticates by name alone.
	SecretHash string
}

// IdentityConfig holds configuration for IdentityResolver.
type IdentityConfig struct {
	// Principals are the known callers.
	Principals []Principal

	// AllowAnonymousOrdinals accepts a bare user ordinal ("3") as a
	// principal with no secret.
	AllowAnonymousOrdinals bool

	// RateLimit is the per-principal request rate per second (0 = unlimited).
	RateLimit int
}

// IdentityResolver maps a principal name and secret to a user ordinal.
type IdentityResolver struct {
	mu         sync.RWMutex
	principals map[string]Principal
	ordinals   bool
	users      int
	rateLimit  int
	limiters   *RateLimiterRegistry
}

// NewIdentityResolver creates a resolver for a vault of users users.
func NewIdentityResolver(users int, cfg IdentityConfig) (*IdentityResolver, error) {
	r := &IdentityResolver{
		users:     users,
		rateLimit: cfg.RateLimit,
		limiters:  NewRateLimiterRegistry(),
	}
	if err := r.Reload(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload swaps the principal table.
func (r *IdentityResolver) Reload(cfg IdentityConfig) error {
	principals := make(map[string]Principal, len(cfg.Principals))
	for _, p := range cfg.Principals {
		if p.Name == "" {
			return domain.ErrMissingArgument.WithDetails("principal name is required")
		}
		if _, dup := principals[p.Name]; dup {
			return domain.ErrInvalidArgument.WithDetails("duplicate principal " + p.Name)
		}
		if p.User < 1 || p.User > r.users {
			return domain.ErrInvalidUser.WithDetails("principal " + p.Name + " maps to user " + strconv.Itoa(p.User))
		}
		if p.SecretHash != "" && !domain.IsSecretHash(p.SecretHash) {
			return domain.ErrInvalidArgument.WithDetails("principal " + p.Name + " has a malformed secret hash")
		}
		principals[p.Name] = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.principals = principals
	r.ordinals = cfg.AllowAnonymousOrdinals
	r.rateLimit = cfg.RateLimit
	r.limiters.Clear()
	return nil
}

// Resolve authenticates name and secret and returns the user ordinal.
func (r *IdentityResolver) Resolve(ctx context.Context, name, secret string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	p, known := r.principals[name]
	ordinals := r.ordinals
	limit := r.rateLimit
	r.mu.RUnlock()

	if err := r.CheckRateLimit(name, limit); err != nil {
		return 0, err
	}

	if known {
		if p.SecretHash != "" && !domain.VerifySecret(secret, p.SecretHash) {
			return 0, domain.ErrUnauthenticated.WithDetails("invalid secret")
		}
		return p.User, nil
	}

	if ordinals {
		user, err := strconv.Atoi(name)
		if err != nil {
			return 0, domain.ErrUnauthenticated.WithDetails("unknown principal")
		}
		if user < 1 || user > r.users {
			return 0, domain.ErrInvalidUser.WithDetails("user " + name)
		}
		return user, nil
	}

	return 0, domain.ErrUnauthenticated.WithDetails("unknown principal")
}

// CheckRateLimit consumes one token of key's limiter.
func (r *IdentityResolver) CheckRateLimit(key string, rateLimit int) error {
	if rateLimit <= 0 {
		return nil
	}
	limiter := r.limiters.GetOrCreate(key, rateLimit)
	if !limiter.Allow() {
		reservation := limiter.Reserve()
		delay := reservation.Delay()
		reservation.Cancel()
		return domain.ErrRateLimited.WithDetails("retry after " + delay.String())
	}
	return nil
}

// ============================================================================
// RateLimiterRegistry
// ============================================================================

// RateLimiterRegistry manages one token bucket per key.
type RateLimiterRegistry struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiterRegistry creates a new RateLimiterRegistry.
func NewRateLimiterRegistry() *RateLimiterRegistry {
	return &RateLimiterRegistry{
		limiters: make(map[string]*rate.Limiter),
	}
}

// GetOrCreate retrieves an existing rate limiter or creates one allowing
// rateLimit events per second with an equal burst.
func (r *RateLimiterRegistry) GetOrCreate(key string, rateLimit int) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[key]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := r.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(rateLimit), rateLimit)
	r.limiters[key] = limiter
	return limiter
}

// Delete removes the limiter for key.
func (r *RateLimiterRegistry) Delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.limiters, key)
}

// Clear removes all rate limiters.
func (r *RateLimiterRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiters = make(map[string]*rate.Limiter)
}

// Len returns the number of tracked keys.
func (r *RateLimiterRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.limiters)
}
