package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/probegate/probegate/internal/domain"
	"github.com/probegate/probegate/internal/repo"
	"github.com/probegate/probegate/internal/runner"
)

type createRunPayload struct {
	Suite  string             `json:"suite"`
	Checks []domain.CheckSpec `json:"checks"`
	// Wait makes the request block until the run finishes and returns the
	// full report instead of 202.
	Wait bool `json:"wait"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var p createRunPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if err := validateChecks(p.Checks); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := domain.RunID(uuid.NewString())
	lg := s.Logger.With(zap.String("run_id", string(id)))

	opts := []runner.Option{}
	if s.opts.ProbeGap > 0 {
		opts = append(opts, runner.WithPacing(s.opts.ProbeGap))
	}
	rn := runner.New(s.Prober, lg, opts...)

	hub := newRunHub()
	rn.OnProgress(hub.Publish)
	if s.Metrics != nil {
		rn.OnProgress(func(ev domain.ProgressEvent) {
			s.Metrics.ObserveOutcome(ev.Outcome)
		})
	}

	ar := &activeRun{
		run: domain.Run{
			ID:        id,
			Suite:     p.Suite,
			State:     domain.StateRunning,
			StartedAt: time.Now().UTC(),
		},
		r:   rn,
		hub: hub,
	}
	s.register(ar)
	if s.Metrics != nil {
		s.Metrics.RunStarted()
	}

	// Persist the running envelope so history lists it immediately.
	if err := s.Store.Save(r.Context(), ar.snapshot()); err != nil {
		lg.Warn("run_save_error", zap.Error(err))
	}
	lg.Info("run_accepted",
		zap.String("suite", p.Suite),
		zap.Int("checks", len(p.Checks)),
		zap.Bool("wait", p.Wait),
	)

	if p.Wait {
		s.execute(ar, p.Checks)
		writeJSON(w, http.StatusOK, ar.snapshot())
		return
	}

	go s.execute(ar, p.Checks)
	writeJSON(w, http.StatusAccepted, ar.snapshot())
}

// execute drives the run to its terminal state, persists it, and notifies
// every downstream consumer. Runs on its own goroutine unless wait was set.
func (s *Server) execute(ar *activeRun, checks []domain.CheckSpec) {
	report, err := ar.r.Run(context.Background(), checks)
	if err != nil {
		// Checks were validated and the runner is fresh; log and fall through
		// so the envelope still reaches a terminal state.
		s.Logger.Error("run_error", zap.String("run_id", string(ar.run.ID)), zap.Error(err))
	}

	now := time.Now().UTC()
	ar.mu.Lock()
	ar.run.State = ar.r.State()
	ar.run.FinishedAt = &now
	ar.run.Report = report
	snap := ar.run
	ar.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Store.Save(ctx, &snap); err != nil {
		s.Logger.Warn("run_save_error", zap.String("run_id", string(snap.ID)), zap.Error(err))
	}
	if s.Metrics != nil && report != nil {
		s.Metrics.ObserveRun(report)
	}
	if s.Gate != nil {
		s.Gate.RunFinished(ctx, &snap)
	}
	ar.hub.Finish(&snap)
	s.unregister(snap.ID)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	runs, err := s.Store.List(r.Context(), limit)
	if err != nil {
		s.Logger.Warn("runs_list_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	if runs == nil {
		runs = []*domain.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := domain.RunID(chi.URLParam(r, "id"))
	if ar := s.lookupActive(id); ar != nil {
		writeJSON(w, http.StatusOK, ar.snapshot())
		return
	}
	run, err := s.Store.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.Logger.Warn("run_get_error", zap.String("run_id", string(id)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get error")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	id := domain.RunID(chi.URLParam(r, "id"))
	if ar := s.lookupActive(id); ar != nil {
		ar.r.Cancel()
		s.Logger.Info("run_cancel_requested", zap.String("run_id", string(id)))
		writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "state": domain.StateRunning})
		return
	}
	// Cancelling a finished run is a no-op; report its terminal state.
	run, err := s.Store.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get error")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleRunEvents streams a run's ProgressEvents over a WebSocket, replaying
// any the consumer missed, and ends with the terminal report frame.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	id := domain.RunID(chi.URLParam(r, "id"))

	ar := s.lookupActive(id)
	if ar == nil {
		run, err := s.Store.Get(r.Context(), id)
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "get error")
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(Frame{Type: "report", Run: run})
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("ws_upgrade_error", zap.String("run_id", string(id)), zap.Error(err))
		return
	}
	defer conn.Close()

	ch := ar.hub.Subscribe()
	defer ar.hub.Unsubscribe(ch)
	for f := range ch {
		if err := conn.WriteJSON(f); err != nil {
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func validateChecks(checks []domain.CheckSpec) error {
	if len(checks) == 0 {
		return errors.New("no checks to run")
	}
	seen := make(map[string]bool, len(checks))
	for i, c := range checks {
		if c.ID == "" {
			return fmt.Errorf("check %d: id is required", i+1)
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate check id %q", c.ID)
		}
		seen[c.ID] = true
		if c.MaxDurationMS <= 0 {
			return fmt.Errorf("check %q: maxDurationMs must be positive", c.ID)
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
