package apihttp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/example/strcalc/internal/auth"
	"github.com/example/strcalc/internal/ctxutil"
	"github.com/example/strcalc/internal/rate"
	"github.com/example/strcalc/pkg/jsonutil"
	"go.uber.org/zap"
)

// RequestID injects a random request id into context and response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b [8]byte
		_, _ = rand.Read(b[:])
		reqID := hex.EncodeToString(b[:])
		r = r.WithContext(ctxutil.WithRequestID(r.Context(), reqID))
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

// Logger logs one structured line per request.
func Logger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rlw := &respLogger{ResponseWriter: w, status: http.StatusOK}
			// Auth runs further down the chain; it reports the client back through this slot.
			slot := &clientSlot{}
			r = r.WithContext(context.WithValue(r.Context(), clientSlotKey{}, slot))
			next.ServeHTTP(rlw, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rlw.status),
				zap.Int64("dur_ms", time.Since(start).Milliseconds()),
				zap.String("ip", rate.IPFromRequest(r)),
				zap.String("req_id", ctxutil.RequestID(r.Context())),
				zap.String("api", slot.client))
		})
	}
}

type clientSlotKey struct{}

type clientSlot struct{ client string }

type respLogger struct {
	http.ResponseWriter
	status int
}

func (r *respLogger) WriteHeader(code int) { r.status = code; r.ResponseWriter.WriteHeader(code) }

// CORS allows cross-origin requests from browser clients.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-Admin-Token")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit enforces per-client limits, keyed by API key when the request
// is authenticated and by IP otherwise. Anonymous requests leave with the
// IP-based key as their client id, so per-client state such as history
// stays separated.
func RateLimit(lm *rate.LimiterMap) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ctxutil.Client(r.Context())
			key := rate.ClientKey(r, client)
			if !lm.Allow(key) {
				w.Header().Set("Retry-After", "60")
				jsonutil.Error(w, http.StatusTooManyRequests, "rate limited")
				return
			}
			if client == "" {
				r = r.WithContext(ctxutil.WithClient(r.Context(), key))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Auth validates the X-API-Key header and records the key's hash prefix as
// the client id.
func Auth(store auth.KeyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				jsonutil.Error(w, http.StatusUnauthorized, "missing api key")
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			ok, err := store.Validate(ctx, key)
			if err != nil {
				jsonutil.Error(w, http.StatusForbidden, "invalid api key")
				return
			}
			if !ok {
				jsonutil.Error(w, http.StatusForbidden, "invalid or inactive api key")
				return
			}
			hp := auth.HashPrefix(key)
			if slot, _ := r.Context().Value(clientSlotKey{}).(*clientSlot); slot != nil {
				slot.client = hp
			}
			r = r.WithContext(ctxutil.WithClient(r.Context(), hp))
			next.ServeHTTP(w, r)
		})
	}
}
