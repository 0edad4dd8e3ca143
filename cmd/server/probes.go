package main

import (
	"context"
	"net/http"
	"time"

	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// dependencyCheck is one dependency the readiness probe pings.
type dependencyCheck struct {
	name  string
	check func(ctx context.Context) error
}

// newProbeEngine builds the gin engine that serves /health and /ready.
func newProbeEngine(serviceName string, log *zap.Logger, checks []dependencyCheck) *gin.Engine {
	engine := gin.New()
	engine.Use(otelgin.Middleware(serviceName))
	engine.Use(logger.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	engine.GET("/health", healthHandler())
	engine.GET("/ready", readyHandler(log, checks))
	return engine
}

// healthHandler reports liveness. It never touches dependencies.
func healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

// readyHandler pings every dependency and answers 503 if any of them fails.
func readyHandler(log *zap.Logger, checks []dependencyCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(gin.H, len(checks))
		for _, dep := range checks {
			if err := dep.check(ctx); err != nil {
				logger.With(ctx, log).Warn("Readiness check failed",
					zap.String("dependency", dep.name),
					zap.Error(err),
				)
				results[dep.name] = "error"
				status = http.StatusServiceUnavailable
				continue
			}
			results[dep.name] = "ok"
		}

		body := gin.H{
			"status":       "ready",
			"time":         time.Now().Format(time.RFC3339),
			"dependencies": results,
		}
		if status != http.StatusOK {
			body["status"] = "not_ready"
		}
		c.JSON(status, body)
	}
}
