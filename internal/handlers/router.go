package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"behaviorgate/internal/adminauth"
	"behaviorgate/internal/config"
	"behaviorgate/internal/metrics"
)

// NewRouter mounts the public, admin and metrics routes behind CORS and the
// global rate limiter.
func NewRouter(cfg *config.Config, h *Handler, m *metrics.Metrics, logger zerolog.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(requestLogger(logger), requestMetrics(m))

	router.HandleFunc("/verify", h.VerifyHandler).Methods(http.MethodPost)
	router.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	admin := router.PathPrefix("/admin").Subrouter()
	if cfg.AdminKeyHash == "" {
		logger.Warn().Msg("ADMIN_KEY_HASH is not set; admin routes are unauthenticated")
	} else {
		admin.Use(adminAuth(cfg.AdminKeyHash, logger))
	}
	admin.HandleFunc("/verification-logs", h.AdminLogsHandler).Methods(http.MethodGet)

	if cfg.EnableMetrics && m != nil {
		router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.APICORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	limiter := rate.NewLimiter(
		rate.Every(time.Duration(cfg.APIRateLimitWindowMins)*time.Minute/time.Duration(cfg.APIRateLimitRequests)),
		cfg.APIRateLimitRequests,
	)

	return rateLimitMiddleware(limiter)(c.Handler(router))
}

func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeJSON(w, http.StatusTooManyRequests, MessageResponse{Message: "Rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func adminAuth(encodedHash string, logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := adminauth.KeyFromHeaders(r.Header.Get("Authorization"), r.Header.Get("X-Admin-Key"))
			if key == "" {
				writeJSON(w, http.StatusUnauthorized, MessageResponse{Message: "Unauthorized"})
				return
			}

			ok, err := adminauth.Verify(encodedHash, key)
			if err != nil {
				if errors.Is(err, adminauth.ErrMalformedHash) {
					logger.Error().Err(err).Msg("ADMIN_KEY_HASH is malformed")
				}
				writeJSON(w, http.StatusUnauthorized, MessageResponse{Message: "Unauthorized"})
				return
			}
			if !ok {
				logger.Warn().Str("path", r.URL.Path).Msg("rejected admin key")
				writeJSON(w, http.StatusUnauthorized, MessageResponse{Message: "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Str("ua", r.UserAgent()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

func requestMetrics(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			m.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
			m.HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
