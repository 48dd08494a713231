// Package http exposes the hub's API: the device telemetry intake, the
// operator command intake, fleet snapshot reads, the websocket event stream,
// and the health and metrics endpoints.
//
// The telemetry intake is reachable without per-request authentication
// (devices authenticate out of band); the command intake is expected to sit
// behind an authenticating proxy that only admits operator sessions. That
// asymmetry is part of the deployment contract.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/bus"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/core"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/service"
	"github.com/fleetgrid-io/fleetgrid/pkg/log"
	"github.com/fleetgrid-io/fleetgrid/pkg/options"
)

// Server implements the HTTP ingress layer.
type Server struct {
	server   *http.Server
	svc      *service.Service
	vehicles core.VehicleRepository
	fanout   *bus.Bus
	validate *validator.Validate
}

// NewServer creates the HTTP server and wires up all routes.
func NewServer(opts *options.HttpOptions, svc *service.Service, vehicles core.VehicleRepository, fanout *bus.Bus) *Server {
	s := &Server{
		svc:      svc,
		vehicles: vehicles,
		fanout:   fanout,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/telemetry", s.handleTelemetry).Methods(http.MethodPost)
	api.HandleFunc("/vehicles", s.handleRegisterVehicle).Methods(http.MethodPost)
	api.HandleFunc("/vehicles", s.handleListVehicles).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id}", s.handleGetVehicle).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id}/engine", s.handleEngineCommand).Methods(http.MethodPost)
	api.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	return s
}

// Start runs the server until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	log.Info("Starting HTTP Server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.vehicles.Healthy(r.Context()); err != nil {
		http.Error(w, "record store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
