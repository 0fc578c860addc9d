package api

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/myagiz61/backend/internal/infra/logging"
	"github.com/myagiz61/backend/internal/infra/metrics"
)

type Middleware func(http.Handler) http.Handler

const traceHeader = "X-Request-ID"

// TraceID reuses an inbound request id or mints a ULID, and echoes it back.
func TraceID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tid := strings.TrimSpace(r.Header.Get(traceHeader))
			if tid == "" || len(tid) > 64 {
				tid = logging.NewTraceID()
			}
			w.Header().Set(traceHeader, tid)
			ctx := logging.WithTraceID(r.Context(), tid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequestLog(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: 200}
			next.ServeHTTP(ww, r)
			l := logging.With(r.Context(), logger)
			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.status).
				Dur("duration", time.Since(start)).
				Msg("http_request")
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func Recover(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					l := logging.With(r.Context(), logger)
					l.Error().Interface("panic", rec).Msg("panic recovered")
					writeJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "internal error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type claimsKey struct{}

func claimsFrom(ctx context.Context) *UserClaims {
	c, _ := ctx.Value(claimsKey{}).(*UserClaims)
	return c
}

// userID is only meaningful behind RequireUser.
func userID(r *http.Request) string {
	if c := claimsFrom(r.Context()); c != nil {
		return c.Subject
	}
	return ""
}

// RequireUser rejects requests without a valid bearer token.
func RequireUser(auth *AuthManager) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := auth.ParseFromRequest(r)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Code: "UNAUTHORIZED", Message: "authentication required"})
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			ctx = logging.WithUserID(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

const apiKeyHeader = "X-API-Key"

// RequireAdmin accepts the static admin API key or a token with the admin claim.
func RequireAdmin(apiKey string, auth *AuthManager, logger *zerolog.Logger) Middleware {
	deny := func(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
		metrics.IncAdminAction(adminAction(r), "unauthorized")
		writeJSON(w, status, errorBody{Code: code, Message: msg})
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get(apiKeyHeader); key != "" {
				if apiKey == "" {
					logger.Error().Msg("admin API key is not configured")
					deny(w, r, http.StatusForbidden, "FORBIDDEN", "forbidden")
					return
				}
				if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
					deny(w, r, http.StatusForbidden, "FORBIDDEN", "forbidden")
					return
				}
				metrics.IncAdminAction(adminAction(r), "authorized")
				next.ServeHTTP(w, r)
				return
			}
			claims, err := auth.ParseFromRequest(r)
			if err != nil {
				deny(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			if !claims.Admin {
				deny(w, r, http.StatusForbidden, "FORBIDDEN", "admin only")
				return
			}
			metrics.IncAdminAction(adminAction(r), "authorized")
			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// adminAction labels by the last static path segment ("manual", "confirm").
func adminAction(r *http.Request) string {
	p := strings.TrimRight(r.URL.Path, "/")
	return p[strings.LastIndex(p, "/")+1:]
}

// Limiter is satisfied by the redis fixed-window limiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit keys on the authenticated user, falling back to the client IP.
// A limiter outage lets the request through.
func RateLimit(l Limiter, route string, limit int, window time.Duration, keyFn func(userID, route string) string, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := userID(r)
			if subject == "" {
				subject = "ip:" + clientIP(r)
			}
			ok, err := l.Allow(r.Context(), keyFn(subject, route), limit, window)
			if err != nil {
				logging.With(r.Context(), logger).Warn().Err(err).Str("route", route).Msg("rate limiter unavailable")
			} else if !ok {
				writeJSON(w, http.StatusTooManyRequests, errorBody{Code: "RATE_LIMITED", Message: "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
