// Package health exposes liveness and readiness endpoints with pluggable
// dependency checks.
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Checker is a health check function that returns an error if unhealthy
type Checker func() error

const checkTimeout = 2 * time.Second

// PostgresChecker verifies database connectivity through the pgx pool.
func PostgresChecker(pool *pgxpool.Pool) Checker {
	return func() error {
		if pool == nil {
			return fmt.Errorf("database pool is nil")
		}

		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		return nil
	}
}

// RedisChecker verifies Redis connectivity.
func RedisChecker(client *redis.Client) Checker {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		return nil
	}
}

// Handler serves the health endpoints for one service.
type Handler struct {
	serviceName string
	version     string
	checks      map[string]Checker
}

// NewHandler creates a health handler with the given dependency checks.
func NewHandler(serviceName, version string, checks map[string]Checker) *Handler {
	return &Handler{serviceName: serviceName, version: version, checks: checks}
}

// RegisterRoutes mounts the liveness and readiness endpoints.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Live)
	router.GET("/health/live", h.Live)
	router.GET("/health/ready", h.Ready)
}

// Live reports process liveness without touching dependencies.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready runs every dependency check and fails on the first unhealthy one.
func (h *Handler) Ready(c *gin.Context) {
	for name, check := range h.checks {
		if err := check(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":       "not ready",
				"service":      h.serviceName,
				"failed_check": name,
				"error":        err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": h.serviceName,
		"version": h.version,
	})
}
