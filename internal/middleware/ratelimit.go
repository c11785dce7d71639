package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/aman-churiwal/quota-gateway/internal/logging"
	"github.com/aman-churiwal/quota-gateway/internal/metrics"
	"github.com/aman-churiwal/quota-gateway/internal/ratelimit"
	"github.com/aman-churiwal/quota-gateway/internal/service"
)

const (
	HeaderAPIKey             = "X-API-Key"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

const (
	detailMissingKey  = "Missing X-API-Key header"
	detailInvalidKey  = "Invalid or inactive API key"
	detailRateLimited = "Rate limit exceeded"
	detailUnavailable = "Service temporarily unavailable"
)

// KeyResolver is implemented by service.APIKeyService.
type KeyResolver interface {
	Resolve(ctx context.Context, secret string) (service.Identity, error)
}

// PlanLimits is implemented by ratelimit.PlanCache.
type PlanLimits interface {
	LimitFor(ctx context.Context, planID uuid.UUID) (int, error)
}

// UsageTracker is implemented by usage.Tracker.
type UsageTracker interface {
	Track(keyID uuid.UUID)
}

type RateLimitConfig struct {
	// ProtectedPrefix selects the paths that require a key, e.g. "/v1".
	ProtectedPrefix string
	Resolver        KeyResolver
	Limits          PlanLimits
	Counter         ratelimit.Counter
	Usage           UsageTracker
	// FailOpen admits requests without rate-limit headers when the counter store fails.
	FailOpen bool
	Clock    clockwork.Clock
	Metrics  *metrics.Collector
}

// RateLimit authenticates every request under the protected prefix by its API key and
// admits it only while the key's count in the current fixed window is within its plan limit.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return func(c *gin.Context) {
		if !isProtected(c.Request.URL.Path, cfg.ProtectedPrefix) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		log := requestLogger(c)

		identity, err := cfg.Resolver.Resolve(ctx, c.GetHeader(HeaderAPIKey))
		switch {
		case errors.Is(err, service.ErrMissingAPIKey):
			cfg.Metrics.IncAdmission(metrics.OutcomeUnauthenticated)
			abortWithDetail(c, http.StatusUnauthorized, detailMissingKey)
			return
		case errors.Is(err, service.ErrInvalidAPIKey):
			cfg.Metrics.IncAdmission(metrics.OutcomeUnauthenticated)
			abortWithDetail(c, http.StatusUnauthorized, detailInvalidKey)
			return
		case err != nil:
			log.Error("failed to resolve api key", logging.Error(err))
			cfg.Metrics.IncAdmission(metrics.OutcomeStoreError)
			abortWithDetail(c, http.StatusServiceUnavailable, detailUnavailable)
			return
		}

		c.Set(ContextKeyAPIKeyID, identity.KeyID)
		c.Set(ContextKeyPlanID, identity.PlanID)

		// Usage is recorded for every resolved key, whatever the verdict.
		cfg.Usage.Track(identity.KeyID)

		limit, err := cfg.Limits.LimitFor(ctx, identity.PlanID)
		if err != nil {
			log.Error("failed to load plan limit", logging.String("plan_id", identity.PlanID.String()), logging.Error(err))
			cfg.Metrics.IncAdmission(metrics.OutcomeStoreError)
			abortWithDetail(c, http.StatusServiceUnavailable, detailUnavailable)
			return
		}

		now := clock.Now()
		window := ratelimit.WindowIndex(now)

		count, err := cfg.Counter.Increment(ctx, identity.KeyID.String(), window)
		if err != nil {
			if cfg.FailOpen {
				log.Warn("window counter unavailable, admitting request", logging.Error(err))
				cfg.Metrics.IncAdmission(metrics.OutcomeCounterErrorOpen)
				c.Next()
				return
			}
			log.Error("window counter unavailable, rejecting request", logging.Error(err))
			cfg.Metrics.IncAdmission(metrics.OutcomeCounterErrorClosed)
			abortWithDetail(c, http.StatusServiceUnavailable, detailUnavailable)
			return
		}

		d := ratelimit.Decide(count, limit, window, now)

		c.Header(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
		c.Header(HeaderRateLimitRemaining, strconv.FormatInt(d.Remaining, 10))
		c.Header(HeaderRateLimitReset, strconv.FormatInt(d.Reset, 10))

		if !d.Allowed {
			c.Header(HeaderRetryAfter, strconv.FormatInt(d.RetryAfter, 10))
			cfg.Metrics.IncAdmission(metrics.OutcomeRejected)
			abortWithDetail(c, http.StatusTooManyRequests, detailRateLimited)
			return
		}

		cfg.Metrics.IncAdmission(metrics.OutcomeAllowed)
		c.Next()
	}
}

// isProtected reports whether path is prefix itself or lies below it.
func isProtected(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
