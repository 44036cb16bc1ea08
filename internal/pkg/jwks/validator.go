package jwks

import (
	"context"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meridianpay/meridian/internal/domain/apperrors"
)

// errInvalidToken is deliberately uniform: validation failures never echo
// what was wrong with the presented token.
var errInvalidToken = apperrors.New(apperrors.KindUnauthenticated, "Invalid or expired token")

// Claims is the authenticated identity extracted from a bearer token.
type Claims struct {
	UserID int64
	Scope  string
}

type tokenClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Validator verifies RS256 bearer tokens against the cached key set and
// the service's issuer, audience and accepted scopes.
type Validator struct {
	keys     *Cache
	issuer   string
	audience string
	scopes   map[string]struct{}
}

// NewValidator builds a validator accepting tokens whose scope is one of
// acceptedScopes.
func NewValidator(keys *Cache, issuer, audience string, acceptedScopes []string) *Validator {
	scopes := make(map[string]struct{}, len(acceptedScopes))
	for _, s := range acceptedScopes {
		scopes[s] = struct{}{}
	}
	return &Validator{keys: keys, issuer: issuer, audience: audience, scopes: scopes}
}

// Validate parses and verifies a compact JWS token. Only RS256 is
// accepted; the token must carry a kid, the configured issuer and
// audience, an unexpired exp, an accepted scope and a positive integer
// subject.
func (v *Validator) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errInvalidToken
			}
			return v.keys.Key(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		// Key-set outages surface as 503, everything else collapses to
		// a uniform 401.
		if apperrors.KindOf(err) == apperrors.KindUnavailable {
			return nil, err
		}
		return nil, errInvalidToken
	}
	if !token.Valid {
		return nil, errInvalidToken
	}

	if _, ok := v.scopes[claims.Scope]; !ok {
		return nil, errInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, errInvalidToken
	}

	return &Claims{UserID: userID, Scope: claims.Scope}, nil
}
