package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"causemap/pkg/auth"
	"causemap/pkg/common"
)

// Authenticate validates bearer tokens and throttles callers. The IP
// limiter runs before token validation so unauthenticated floods are
// cut off early; the user limiter runs after, keyed by subject.
func Authenticate(validator *auth.JWTValidator, ipLimiter, userLimiter auth.RateLimiter, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := clientIP(r)

			allowed, err := ipLimiter.Allow(r.Context(), "ip:"+clientIP)
			if err != nil {
				logger.Warn("IP rate limiter error", zap.Error(err))
			}
			if !allowed {
				common.RespondError(w, http.StatusTooManyRequests, common.StandardErrorCodes.TooManyRequests, "Rate limit exceeded")
				return
			}

			token := extractToken(r)
			if token == "" {
				common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Missing authentication token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("ip", clientIP),
					zap.String("path", r.URL.Path),
				)
				switch err {
				case auth.ErrExpiredToken:
					common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Token has expired")
				case auth.ErrInvalidSignature:
					common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Invalid token signature")
				default:
					common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Invalid token")
				}
				return
			}

			allowed, err = userLimiter.Allow(r.Context(), "user:"+claims.UserID)
			if err != nil {
				logger.Warn("User rate limiter error", zap.Error(err))
			}
			if !allowed {
				common.RespondError(w, http.StatusTooManyRequests, common.StandardErrorCodes.TooManyRequests, "User rate limit exceeded")
				return
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID: claims.UserID,
				Email:  claims.Email,
				Roles:  claims.Roles,
			})
			ctx = common.WithUserID(ctx, claims.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthenticateFromGateway trusts the user identity headers the Lambda
// adapter sets after the API Gateway JWT authorizer has validated the
// token. It must only be mounted behind that authorizer.
func AuthenticateFromGateway(userLimiter auth.RateLimiter, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Gateway-Authorized") != "true" {
				common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Request not authorized by API Gateway")
				return
			}

			userID := r.Header.Get("X-User-ID")
			if userID == "" {
				common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Missing user context from API Gateway")
				return
			}

			allowed, err := userLimiter.Allow(r.Context(), "user:"+userID)
			if err != nil {
				logger.Warn("User rate limiter error", zap.Error(err))
			}
			if !allowed {
				common.RespondError(w, http.StatusTooManyRequests, common.StandardErrorCodes.TooManyRequests, "User rate limit exceeded")
				return
			}

			roles := []string{"authenticated"}
			if userRoles := r.Header.Get("X-User-Roles"); userRoles != "" {
				roles = strings.Split(userRoles, ",")
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID: userID,
				Email:  r.Header.Get("X-User-Email"),
				Roles:  roles,
			})
			ctx = common.WithUserID(ctx, userID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken pulls the bearer token from the Authorization header or
// the auth cookie.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return authHeader
	}
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// clientIP resolves the caller address behind proxies.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
