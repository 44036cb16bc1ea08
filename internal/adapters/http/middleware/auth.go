package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/meridianpay/meridian/internal/adapters/http/common"
	"github.com/meridianpay/meridian/internal/domain/apperrors"
	"github.com/meridianpay/meridian/internal/pkg/jwks"
	"github.com/meridianpay/meridian/internal/pkg/logger"
)

// Auth validates the request's bearer token and stores the authenticated
// user id and raw token on the context. The raw token is kept so handlers
// can forward the caller's identity to upstream services.
func Auth(validator *jwks.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			common.RespondError(c, apperrors.New(apperrors.KindUnauthenticated, "Authorization header is required"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			common.RespondError(c, apperrors.New(apperrors.KindUnauthenticated, "Invalid authorization header format"))
			return
		}
		token := parts[1]

		claims, err := validator.Validate(c.Request.Context(), token)
		if err != nil {
			common.RespondError(c, err)
			return
		}

		c.Set(common.AuthUserIDKey, claims.UserID)
		c.Set(common.BearerTokenKey, token)
		c.Request = c.Request.WithContext(
			logger.WithUserID(c.Request.Context(), strconv.FormatInt(claims.UserID, 10)))

		c.Next()
	}
}
