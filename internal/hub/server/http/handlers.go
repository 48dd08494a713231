package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/core"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/model"
)

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	var req telemetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed payload: %v", core.ErrValidation, err))
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}

	vehicle, err := s.svc.IngestTelemetry(r.Context(), req.toSample())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, telemetryResponse{
		Success:              true,
		AcknowledgedPosition: vehicle.Position,
	})
}

func (s *Server) handleEngineCommand(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed payload: %v", core.ErrValidation, err))
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}

	vehicle, err := s.svc.SetEngineStatus(r.Context(), &model.EngineCommand{
		VehicleID: id,
		Status:    model.EngineStatus(req.EngineStatus),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, vehicle)
}

func (s *Server) handleRegisterVehicle(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed payload: %v", core.ErrValidation, err))
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}

	vehicle, err := s.svc.RegisterVehicle(r.Context(), req.ID, req.HardwareID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, vehicle)
}

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := s.svc.ListVehicles(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if vehicles == nil {
		vehicles = []*model.Vehicle{}
	}

	writeJSON(w, http.StatusOK, vehicles)
}

func (s *Server) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	vehicle, err := s.svc.GetVehicle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, vehicle)
}
