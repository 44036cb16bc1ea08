package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meridianpay/meridian/internal/adapters/http/common"
)

// Recovery converts panics into a 500 with the uniform error body.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.ErrorContext(c.Request.Context(), "panic recovered",
					slog.Any("panic", r),
					slog.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, common.ErrorResponse{
					Error:     "internal",
					Detail:    "Internal server error",
					RequestID: common.RequestID(c),
				})
			}
		}()
		c.Next()
	}
}
