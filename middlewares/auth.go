package middlewares

import (
	"slices"
	"strings"

	"github.com/dmitrymomot/campus/internal/router"
	"github.com/dmitrymomot/campus/pkg/token"
)

// claimsKey is the context key for storing validated token claims.
type claimsKey struct{}

// unauthorizedMessage is deliberately the same for every auth failure so
// callers cannot probe which check rejected them.
const unauthorizedMessage = "Invalid or expired token"

// Auth returns middleware that extracts a Bearer token from the
// Authorization header, validates it, and stores the claims in the
// context. Every failure yields the same 401 envelope.
func Auth(svc *token.Service) router.Middleware {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return router.ErrUnauthorized(unauthorizedMessage)
			}

			claims, err := svc.Validate(c.Context(), raw)
			if err != nil {
				return router.ErrUnauthorized(unauthorizedMessage)
			}

			c.Set(claimsKey{}, claims)
			return next(c)
		}
	}
}

// RequireRole returns middleware that restricts a route to the given
// roles. Must run after Auth.
func RequireRole(roles ...string) router.Middleware {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			claims := GetClaims(c)
			if claims == nil {
				return router.ErrUnauthorized(unauthorizedMessage)
			}
			if !slices.Contains(roles, claims.Role) {
				c.LogWarn("role denied",
					"required", strings.Join(roles, ","),
					"role", claims.Role,
					"user_id", claims.UserID())
				return router.ErrForbidden("Insufficient permissions")
			}
			return next(c)
		}
	}
}

// GetClaims extracts validated token claims from the context.
// Returns nil if the Auth middleware is not applied.
func GetClaims(c router.Context) *token.Claims {
	if v, ok := c.Get(claimsKey{}).(*token.Claims); ok {
		return v
	}
	return nil
}

// AuthUserID returns the authenticated user's id, or 0 when the request
// carries no validated claims.
func AuthUserID(c router.Context) int64 {
	if claims := GetClaims(c); claims != nil {
		return claims.UserID()
	}
	return 0
}

// bearerToken pulls the token out of the Authorization header.
func bearerToken(c router.Context) string {
	h := c.Header("Authorization")
	if h == "" {
		return ""
	}
	scheme, value, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}
