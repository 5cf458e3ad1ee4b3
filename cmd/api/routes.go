package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"ivr-platform/internal/httpapi"
	"ivr-platform/internal/ivr"
	"ivr-platform/internal/reporting"
	"ivr-platform/internal/telephony"
	"ivr-platform/internal/wallet"
	"ivr-platform/pkg/logger"
	"ivr-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type deps struct {
	health healthChecks
	ivr    ivr.Handlers
	guard  telephony.SignatureGuard
	authMW gin.HandlerFunc
	calls  httpapi.CallFinder
	wallet wallet.Ledger
	report *reporting.Service
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d deps) {
	// public
	r.GET("/healthz", d.health.handle)

	// Provider webhooks; every request must carry a valid signature.
	d.ivr.Register(r, d.guard.Middleware())

	// Operator API.
	v1 := r.Group("/v1")
	v1.Use(d.authMW)
	httpapi.Handlers{Calls: d.calls, Wallet: d.wallet, Reports: d.report}.Register(v1)
}

type healthChecks struct {
	db    *sql.DB
	redis *redis.Client
}

func (h healthChecks) handle(c *gin.Context) {
	ctx := c.Request.Context()
	status := gin.H{"status": "ok", "postgres": "ok", "redis": "ok"}
	code := http.StatusOK

	if h.db != nil {
		if err := utils.HealthCheck(ctx, h.db, 2*time.Second); err != nil {
			logger.FromGin(c).Warn("postgres health check failed", "err", err)
			status["postgres"] = "down"
			code = http.StatusServiceUnavailable
		}
	}
	if h.redis != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := h.redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.FromGin(c).Warn("redis health check failed", "err", err)
			status["redis"] = "down"
			code = http.StatusServiceUnavailable
		}
	}
	if code != http.StatusOK {
		status["status"] = "degraded"
	}
	c.JSON(code, status)
}
