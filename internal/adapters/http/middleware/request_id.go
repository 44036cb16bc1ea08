// Package middleware holds the gin middleware chain shared by the wallet
// and payments services: request ids, logging, recovery, metrics, auth
// and rate limiting.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/meridianpay/meridian/internal/adapters/http/common"
	"github.com/meridianpay/meridian/internal/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request an id, honoring a client-supplied
// X-Request-ID. The id is echoed back on the response and stamped into the
// request context for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(common.RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))

		c.Next()
	}
}
