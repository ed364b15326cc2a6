package middleware

import (
	"net/http"
	"time"

	"github.com/Shani815/vctalenthub-sub000/pkg/auth"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Logger creates a request logging middleware
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// The auth middleware runs further down the chain and stores the
			// principal on this holder so it can be logged here.
			holder := &principalHolder{}
			r = r.WithContext(withPrincipalHolder(r.Context(), holder))

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())),
				zap.String("remoteAddr", r.RemoteAddr),
				zap.String("userAgent", r.UserAgent()),
			}
			if holder.user != nil {
				fields = append(fields, zap.String("userID", holder.user.UserID))
			}
			logger.Info("HTTP Request", fields...)
		})
	}
}

type principalHolder struct {
	user *auth.UserContext
}
