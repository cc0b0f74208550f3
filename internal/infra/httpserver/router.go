package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	appanalysis "github.com/bryanwahyu/automaton-logwatch/internal/application/analysis"
	domai "github.com/bryanwahyu/automaton-logwatch/internal/domain/ai"
	domain "github.com/bryanwahyu/automaton-logwatch/internal/domain/analysis"
	"github.com/bryanwahyu/automaton-logwatch/internal/middleware"
)

// Analyzer runs the pipeline on demand and reports scheduler state.
type Analyzer interface {
	Trigger() (appanalysis.RunResult, error)
	Status() appanalysis.Status
}

// Options configures the optional parts of the router.
type Options struct {
	APIKeys     []string // protects the trigger endpoint; empty disables auth
	CORSOrigins []string
	RateBurst   int     // trigger rate limit bucket size, 0 disables limiting
	RatePerSec  float64 // tokens refilled per second
	Metrics     *middleware.Metrics
	Health      map[string]middleware.HealthChecker
}

type Router struct {
	store    *appanalysis.Store
	analyzer Analyzer
}

func NewRouter(store *appanalysis.Store, analyzer Analyzer, opts Options) http.Handler {
	r := &Router{store: store, analyzer: analyzer}
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	mux.Use(middleware.LoggingMiddleware)
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	mux.Get("/health", middleware.HealthHandler(opts.Health))
	mux.Get("/ready", middleware.ReadinessHandler(func() bool {
		return analyzer.Status().Runs > 0
	}))

	mux.Route("/api", func(rt chi.Router) {
		rt.Get("/latest-analysis", r.wrap(r.handleLatest))
		rt.Get("/analysis-history", r.wrap(r.handleHistory))
		rt.Get("/status", r.wrap(r.handleStatus))
		rt.Group(func(g chi.Router) {
			g.Use(middleware.APIKeyAuth(opts.APIKeys))
			if opts.RateBurst > 0 {
				g.Use(middleware.RateLimitMiddleware(opts.RateBurst, opts.RatePerSec))
			}
			g.Post("/trigger-analysis", r.wrap(r.handleTrigger))
		})
	})

	mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "not found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status := statusFor(err)
			if status >= 500 {
				log.Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
			}
			middleware.WriteError(w, status, err.Error())
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidLimit):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domai.ErrAuth),
		errors.Is(err, domai.ErrUpstream),
		errors.Is(err, domai.ErrEmptyReply),
		errors.Is(err, domain.ErrNoJSONFound),
		errors.Is(err, domain.ErrMalformedJSON):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// GET /api/latest-analysis
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, r.store.Latest())
}

type triggerResponse struct {
	domain.State
	RunID   string `json:"run_id,omitempty"`
	Skipped int    `json:"skipped,omitempty"`
	Message string `json:"message,omitempty"`
}

// POST /api/trigger-analysis
// Runs synchronously; 409 when a run is already in flight.
func (r *Router) handleTrigger(w http.ResponseWriter, req *http.Request) error {
	res, err := r.analyzer.Trigger()
	if err != nil {
		return err
	}
	out := triggerResponse{State: res.State, RunID: res.RunID, Skipped: res.Skipped}
	if res.Empty {
		out.State = r.store.Latest()
		out.Message = "no log records to analyze"
	}
	return writeJSON(w, http.StatusOK, out)
}

// GET /api/analysis-history?limit=N
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	limit, err := middleware.ParseLimit(req.URL.Query().Get("limit"))
	if err != nil {
		return err
	}
	entries, err := r.store.History(req.Context(), limit)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, entries)
}

// GET /api/status
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) error {
	st := r.analyzer.Status()
	latest := r.store.Latest()
	st.Latest = &latest
	return writeJSON(w, http.StatusOK, st)
}
