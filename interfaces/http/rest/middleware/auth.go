package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Shani815/vctalenthub-sub000/pkg/auth"
	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"

	"go.uber.org/zap"
)

// Headers set by the Lambda entrypoint from the API Gateway authorizer context
const (
	HeaderGatewayAuthorized = "X-API-Gateway-Authorized"
	HeaderUserID            = "X-User-ID"
	HeaderUserEmail         = "X-User-Email"
	HeaderUserRoles         = "X-User-Roles"
)

// AuthConfig configures the authentication middleware
type AuthConfig struct {
	// TrustGatewayHeaders accepts requests pre-authorized by API Gateway.
	// Only enable it behind a gateway that strips these headers from clients.
	TrustGatewayHeaders bool
	RateLimitPerMinute  int
	RateLimitBurst      int
}

// Authenticator validates bearer tokens and throttles callers
type Authenticator struct {
	validator    *auth.JWTValidator
	trustGateway bool
	ipLimiter    *auth.KeyedLimiter
	userLimiter  *auth.KeyedLimiter
	errors       *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewAuthenticator creates the middleware. Users get twice the per-IP
// allowance since several users can share one address.
func NewAuthenticator(validator *auth.JWTValidator, cfg AuthConfig, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *Authenticator {
	a := &Authenticator{
		validator:    validator,
		trustGateway: cfg.TrustGatewayHeaders,
		errors:       errs,
		logger:       logger,
	}
	if cfg.RateLimitPerMinute > 0 {
		a.ipLimiter = auth.NewKeyedLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, 10*time.Minute)
		a.userLimiter = auth.NewKeyedLimiter(2*cfg.RateLimitPerMinute, 2*cfg.RateLimitBurst, 10*time.Minute)
	}
	return a
}

// Stop releases the limiters' background cleanup
func (a *Authenticator) Stop() {
	if a.ipLimiter != nil {
		a.ipLimiter.Stop()
		a.userLimiter.Stop()
	}
}

// Middleware authenticates every request passing through it
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := getClientIP(r)
		if !a.allow(w, a.ipLimiter, clientIP) {
			a.errors.Handle(w, r, pkgerrors.NewRateLimitError("rate limit exceeded"))
			return
		}

		user, err := a.authenticate(r)
		if err != nil {
			a.logger.Debug("Authentication failed",
				zap.Error(err),
				zap.String("ip", clientIP),
				zap.String("path", r.URL.Path),
			)
			a.errors.Handle(w, r, err)
			return
		}

		if !a.allow(w, a.userLimiter, user.UserID) {
			a.errors.Handle(w, r, pkgerrors.NewRateLimitError("user rate limit exceeded"))
			return
		}

		if holder := principalHolderFrom(r.Context()); holder != nil {
			holder.user = user
		}
		next.ServeHTTP(w, r.WithContext(auth.SetUserInContext(r.Context(), user)))
	})
}

func (a *Authenticator) authenticate(r *http.Request) (*auth.UserContext, error) {
	if a.trustGateway && r.Header.Get(HeaderGatewayAuthorized) == "true" {
		userID := r.Header.Get(HeaderUserID)
		if userID == "" {
			return nil, pkgerrors.NewUnauthorizedError("missing user context from API Gateway")
		}
		var roles []string
		if v := r.Header.Get(HeaderUserRoles); v != "" {
			roles = strings.Split(v, ",")
		}
		return &auth.UserContext{
			UserID: userID,
			Email:  r.Header.Get(HeaderUserEmail),
			Roles:  roles,
		}, nil
	}

	token := extractToken(r)
	if token == "" || a.validator == nil {
		return nil, pkgerrors.NewUnauthorizedError("missing authorization header")
	}

	claims, err := a.validator.ValidateToken(token)
	if err != nil {
		switch err {
		case auth.ErrExpiredToken:
			return nil, pkgerrors.NewUnauthorizedError("token has expired")
		case auth.ErrInvalidSignature:
			return nil, pkgerrors.NewUnauthorizedError("invalid token signature")
		default:
			return nil, pkgerrors.NewUnauthorizedError("invalid token")
		}
	}

	return &auth.UserContext{
		UserID: claims.UserID,
		Email:  claims.Email,
		Roles:  claims.Roles,
	}, nil
}

// allow consumes a token for key and sets Retry-After when refused
func (a *Authenticator) allow(w http.ResponseWriter, limiter *auth.KeyedLimiter, key string) bool {
	if limiter == nil {
		return true
	}
	if limiter.Allow(key) {
		return true
	}
	wait := limiter.RetryAfter(key)
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	return false
}

// extractToken reads a bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// getClientIP extracts the client IP address
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

type holderKey struct{}

func withPrincipalHolder(ctx context.Context, h *principalHolder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

func principalHolderFrom(ctx context.Context) *principalHolder {
	h, _ := ctx.Value(holderKey{}).(*principalHolder)
	return h
}
