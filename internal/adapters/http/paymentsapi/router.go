package paymentsapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meridianpay/meridian/internal/adapters/http/common"
	"github.com/meridianpay/meridian/internal/adapters/http/middleware"
	"github.com/meridianpay/meridian/internal/pkg/jwks"
)

// NewRouter assembles the payments service's routes and middleware chain.
func NewRouter(
	h *Handler,
	validator *jwks.Validator,
	log *slog.Logger,
	ready func(ctx context.Context) error,
	rateLimit middleware.RateLimitConfig,
) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logging(log),
		middleware.Metrics("payments"),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if err := ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, common.ErrorResponse{
				Error:     "unavailable",
				Detail:    "Database unreachable",
				RequestID: common.RequestID(c),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(validator), middleware.RateLimit(rateLimit))

	intents := api.Group("/payments/intents")
	intents.POST("", h.CreateIntent)
	intents.GET("/:id", h.GetIntent)
	intents.POST("/:id/confirm", h.Confirm)
	intents.POST("/:id/cancel", h.Cancel)

	return r
}
