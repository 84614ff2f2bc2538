package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// AuthMiddleware resolves the bearer token into caller claims. Requests without a token pass
// through anonymously and are refused by the operations that need an identity; a token that
// is present but invalid is refused here.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := auth.BearerToken(header)
			if err == nil {
				var claims *auth.Claims
				claims, err = auth.ParseToken(secret, token)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
					return
				}
			}

			msg := "인증이 필요합니다. 로그인해주세요."
			if errors.Is(err, auth.ErrInvalidToken) {
				msg = "인증 정보가 유효하지 않습니다. 다시 로그인해주세요."
			}
			respondError(w, http.StatusUnauthorized, "unauthenticated", msg)
		})
	}
}

// RequestLogger logs one line per request with the chi request id and the trace ids.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.WithTrace(r.Context(), log).Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
