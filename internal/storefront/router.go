package storefront

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// NewRouter mounts the storefront API. rps limits the request rate across
// all clients; zero disables the limit.
func NewRouter(session *Session, log logrus.FieldLogger, rps float64) http.Handler {
	h := NewHandler(session)

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(logRequests(log))
	r.Use(middleware.Recoverer)
	r.Use(rateLimit(rps))

	r.Get("/healthz", h.HandleHealth)
	r.Get("/items", h.HandleItems)
	r.Get("/genres", h.HandleGenres)
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.HandleGetCart)
		r.Delete("/", h.HandleClearCart)
		r.Post("/items/{id}", h.HandleAddItem)
		r.Put("/items/{id}", h.HandleSetQuantity)
		r.Delete("/items/{id}", h.HandleRemoveItem)
	})
	return r
}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func logRequests(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"request_id": RequestID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start),
			}).Info("http request")
		})
	}
}

func rateLimit(rps float64) func(http.Handler) http.Handler {
	limit := rate.Inf
	burst := 0
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = int(rps) + 1
	}
	limiter := rate.NewLimiter(limit, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
