package walletapi

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

// NewRouter assembles the wallet service's routes and middleware chain.
// ready reports whether the service can reach its database.
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
		middleware.Metrics("wallet"),
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

	wallets := api.Group("/wallets")
	wallets.POST("", h.CreateWallet)
	wallets.GET("", h.ListWallets)
	wallets.GET("/:id/balance", h.GetBalance)
	wallets.POST("/:id/credit", h.Credit)
	wallets.POST("/:id/debit", h.Debit)
	wallets.POST("/:id/transfers", h.Transfer)
	wallets.POST("/:id/holds", h.CreateHold)
	wallets.POST("/:id/holds/:hold_id/release", h.ReleaseHold)
	wallets.POST("/:id/holds/:hold_id/capture", h.CaptureHold)
	wallets.GET("/:id/statements", h.GetStatement)
	wallets.GET("/:id/reconciliation", h.GetReconciliation)

	return r
}
