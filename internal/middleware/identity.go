package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"relcalc/internal/auth"
	"relcalc/internal/quota"
	"relcalc/internal/utils"
)

// ContextKey defines the type for context keys to avoid conflicts
type ContextKey string

const (
	// CallerKey is the context key for the resolved quota caller
	CallerKey ContextKey = "caller"

	// UserClaimsKey is the context key for validated user claims, present
	// only for authenticated requests
	UserClaimsKey ContextKey = "userClaims"
)

// IdentityMiddleware resolves who is calling. A valid bearer token yields
// the user's identity and tier; anything else falls back to the client IP
// as an anonymous free-tier caller. Invalid tokens degrade to anonymous
// rather than failing the request, since every endpoint it guards is also
// open to unauthenticated callers.
func IdentityMiddleware(jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if tokenString := bearerToken(r); tokenString != "" {
				if claims, err := auth.ValidateUserJWT(tokenString, jwtSecret); err == nil {
					tier := quota.TierFree
					if claims.IsPremium {
						tier = quota.TierPremium
					}
					ctx = context.WithValue(ctx, UserClaimsKey, claims)
					ctx = context.WithValue(ctx, CallerKey, quota.Caller{
						Identity:      claims.UserID.String(),
						Tier:          tier,
						Authenticated: true,
					})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			ctx = context.WithValue(ctx, CallerKey, quota.Caller{
				Identity: clientIP(r),
				Tier:     quota.TierFree,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests that did not present a valid user token.
// Must run after IdentityMiddleware.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserClaims(r.Context()); !ok {
			utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetCaller retrieves the resolved caller from the request context
func GetCaller(ctx context.Context) (quota.Caller, bool) {
	caller, ok := ctx.Value(CallerKey).(quota.Caller)
	return caller, ok
}

// GetUserClaims retrieves validated user claims from the request context
func GetUserClaims(ctx context.Context) (*auth.UserClaims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*auth.UserClaims)
	return claims, ok
}

// bearerToken extracts a bearer token from the Authorization header
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// clientIP resolves the client address, honoring X-Forwarded-For when the
// server sits behind a proxy
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First address in the list is the originating client.
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
