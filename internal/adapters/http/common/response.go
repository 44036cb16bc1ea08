// Package common holds the error envelope and helpers shared by the
// wallet and payments HTTP surfaces.
package common

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meridianpay/meridian/internal/domain/apperrors"
)

// Gin context keys shared across middleware and handlers.
const (
	RequestIDKey   = "request_id"
	AuthUserIDKey  = "auth_user_id"
	BearerTokenKey = "auth_bearer_token"
)

// ErrorResponse is the uniform error body every endpoint returns.
type ErrorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusOf maps an error kind onto its HTTP status.
func StatusOf(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.KindForbidden:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.KindUpstreamUnavailable:
		return http.StatusBadGateway
	case apperrors.KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes the uniform error body for err and aborts.
func RespondError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(StatusOf(err), ErrorResponse{
		Error:     apperrors.KindOf(err).String(),
		Detail:    apperrors.MessageOf(err),
		RequestID: RequestID(c),
	})
}

// RequestID returns the request id assigned by the middleware chain.
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// AuthUserID returns the authenticated user id, or zero when the request
// is unauthenticated.
func AuthUserID(c *gin.Context) int64 {
	return c.GetInt64(AuthUserIDKey)
}

// BearerToken returns the raw bearer token of the request for forwarding
// to upstreams.
func BearerToken(c *gin.Context) string {
	return c.GetString(BearerTokenKey)
}
