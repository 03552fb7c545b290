package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"panelcast/internal/logging"
	"panelcast/internal/status"
)

const shutdownTimeout = 5 * time.Second

// OpsServer exposes metrics, health, and pipeline status over HTTP.
type OpsServer struct {
	bind   string
	logger *slog.Logger
	server *http.Server

	listener net.Listener
}

type stageHealth struct {
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

type healthResponse struct {
	Ready      bool                   `json:"ready"`
	Running    bool                   `json:"running"`
	Stages     map[string]stageHealth `json:"stages"`
	QueueDepth map[string]int64       `json:"queueDepth"`
	LastError  string                 `json:"lastError,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewOpsServer builds the ops server for d listening on bind.
func NewOpsServer(bind string, d *Daemon) *OpsServer {
	return &OpsServer{
		bind:   strings.TrimSpace(bind),
		logger: d.logger,
		server: &http.Server{
			Handler:           Router(d),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Router returns the ops HTTP handler for d.
func Router(d *Daemon) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		handleHealth(w, req, d)
	})
	r.Get("/pipelines/{id}", func(w http.ResponseWriter, req *http.Request) {
		handlePipeline(w, req, d)
	})
	return r
}

// Start begins serving and shuts the server down when ctx ends.
func (s *OpsServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("ops listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("ops server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("ops server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr reports the bound listener address.
func (s *OpsServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down.
func (s *OpsServer) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func handleHealth(w http.ResponseWriter, r *http.Request, d *Daemon) {
	st := d.Status(r.Context())
	resp := healthResponse{
		Ready:      st.Running && st.Workflow.Ready(),
		Running:    st.Running,
		Stages:     make(map[string]stageHealth, len(st.Workflow.StageHealth)),
		QueueDepth: make(map[string]int64, len(st.Workflow.QueueDepth)),
		LastError:  st.Workflow.LastError,
	}
	for name, health := range st.Workflow.StageHealth {
		resp.Stages[name] = stageHealth{Ready: health.Ready, Detail: health.Detail}
	}
	for kind, depth := range st.Workflow.QueueDepth {
		resp.QueueDepth[string(kind)] = depth
	}
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func handlePipeline(w http.ResponseWriter, r *http.Request, d *Daemon) {
	id := chi.URLParam(r, "id")
	inst, err := d.coord.GetStatus(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, inst)
	case errors.Is(err, status.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "pipeline pending or unknown"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
