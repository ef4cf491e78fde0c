package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/probegate/probegate/internal/domain"
	"github.com/probegate/probegate/internal/httpapi/middleware"
	"github.com/probegate/probegate/internal/metrics"
	"github.com/probegate/probegate/internal/notify"
	"github.com/probegate/probegate/internal/probe"
	"github.com/probegate/probegate/internal/repo"
	"github.com/probegate/probegate/internal/runner"
)

// Options tunes the API surface; zero values mean open access and engine
// defaults (handy for tests and local dev).
type Options struct {
	ProbeGap       time.Duration
	PublicAPIKeys  []string
	AdminAPIKeys   []string
	RatePerMin     int
	RateBurst      int
	AllowedOrigins []string
}

type Server struct {
	Logger  *zap.Logger
	Store   repo.RunStore
	Prober  probe.Prober
	Metrics *metrics.Collector
	Gate    *notify.Gate
	opts    Options

	mu     sync.Mutex
	active map[domain.RunID]*activeRun
}

// activeRun is the in-flight side of a run: the runner driving it, the hub
// streaming its events, and the mutable envelope.
type activeRun struct {
	mu  sync.Mutex
	run domain.Run
	r   *runner.Runner
	hub *runHub
}

func (a *activeRun) snapshot() *domain.Run {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := a.run
	return &cp
}

func NewServer(l *zap.Logger, store repo.RunStore, p probe.Prober, m *metrics.Collector, gate *notify.Gate, opts Options) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{
		Logger:  l,
		Store:   store,
		Prober:  p,
		Metrics: m,
		Gate:    gate,
		opts:    opts,
		active:  make(map[domain.RunID]*activeRun),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "X-API-Key", "Content-Type"},
		}))
	} else {
		r.Use(cors.AllowAll().Handler)
	}
	r.Use(middleware.RateLimit(s.opts.RatePerMin, s.opts.RateBurst))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	keys := middleware.Keys{Public: s.opts.PublicAPIKeys, Admin: s.opts.AdminAPIKeys}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAny(keys))
		r.Get("/api/runs", s.handleListRuns)
		r.Get("/api/runs/{id}", s.handleGetRun)
		r.Get("/api/runs/{id}/events", s.handleRunEvents)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(keys))
		r.Post("/api/runs", s.handleCreateRun)
		r.Post("/api/runs/{id}/cancel", s.handleCancelRun)
	})

	return r
}

func (s *Server) lookupActive(id domain.RunID) *activeRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[id]
}

func (s *Server) register(ar *activeRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[ar.run.ID] = ar
}

func (s *Server) unregister(id domain.RunID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
}
