package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"github.com/aman-churiwal/quota-gateway/internal/circuitbreaker"
	"github.com/aman-churiwal/quota-gateway/internal/healthcheck"
	"github.com/aman-churiwal/quota-gateway/internal/service"
)

// Handles health, readiness and admin system endpoints
type SystemHandler struct {
	breaker *circuitbreaker.CircuitBreaker
	checker *healthcheck.Checker
	plans   *service.PlanService
	keys    *service.APIKeyService
	clock   clockwork.Clock
	started time.Time
}

func NewSystemHandler(
	breaker *circuitbreaker.CircuitBreaker,
	checker *healthcheck.Checker,
	plans *service.PlanService,
	keys *service.APIKeyService,
	clock clockwork.Clock,
) *SystemHandler {
	return &SystemHandler{
		breaker: breaker,
		checker: checker,
		plans:   plans,
		keys:    keys,
		clock:   clock,
		started: clock.Now(),
	}
}

// Liveness only, never touches dependencies
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Reports the last known state of every dependency
func (h *SystemHandler) Ready(c *gin.Context) {
	overall := h.checker.OverallHealth()

	status := http.StatusOK
	if overall != healthcheck.Healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":       overall.String(),
		"dependencies": h.checker.AllStatus(),
	})
}

// Returns the state of the counter store circuit breaker
func (h *SystemHandler) CircuitBreakerStatus(c *gin.Context) {
	metrics := h.breaker.Metrics()

	c.JSON(http.StatusOK, gin.H{
		"state":             metrics.State.String(),
		"failure_count":     metrics.FailureCount,
		"success_count":     metrics.SuccessCount,
		"last_failure_time": metrics.LastFailureTime,
		"last_state_change": metrics.LastStateChange,
	})
}

// Manually closes the counter store circuit breaker
func (h *SystemHandler) ResetCircuitBreaker(c *gin.Context) {
	h.breaker.Reset()

	c.JSON(http.StatusOK, gin.H{
		"message": "Circuit breaker reset successfully",
		"state":   h.breaker.State().String(),
	})
}

// Returns plan and key counts and process uptime
func (h *SystemHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()

	plans, err := h.plans.Count(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	keys, err := h.keys.Count(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plans":          plans,
		"api_keys":       keys,
		"uptime_seconds": int64(h.clock.Since(h.started).Seconds()),
		"breaker":        h.breaker.State().String(),
		"dependencies":   h.checker.OverallHealth().String(),
	})
}

