package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/core"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/model"
	"github.com/fleetgrid-io/fleetgrid/pkg/log"
)

// telemetryRequest is the device intake payload. Optional fields are
// pointers: absent means "no change" and must stay distinguishable from a
// reported zero.
type telemetryRequest struct {
	HardwareID string           `json:"hardwareId" validate:"required"`
	Position   *positionPayload `json:"position,omitempty"`
	Speed      *float64         `json:"speed,omitempty" validate:"omitempty,gte=0"`
	Fuel       *float64         `json:"fuel,omitempty" validate:"omitempty,gte=0"`
	Satellites *int             `json:"satellites,omitempty" validate:"omitempty,gte=0"`
	Signal     *int             `json:"signal,omitempty"`
	Battery    *float64         `json:"battery,omitempty" validate:"omitempty,gte=0"`

	// EngineStatus from a device may only ever be ON or OFF.
	EngineStatus *string `json:"engineStatus,omitempty" validate:"omitempty,oneof=ON OFF"`
}

type positionPayload struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

func (r *telemetryRequest) toSample() *model.TelemetrySample {
	sample := &model.TelemetrySample{
		HardwareID:     r.HardwareID,
		Speed:          r.Speed,
		FuelLevel:      r.Fuel,
		Satellites:     r.Satellites,
		SignalStrength: r.Signal,
		BatteryLevel:   r.Battery,
	}
	if r.Position != nil {
		sample.Position = &model.Position{
			Latitude:  r.Position.Latitude,
			Longitude: r.Position.Longitude,
		}
	}
	if r.EngineStatus != nil {
		es := model.EngineStatus(*r.EngineStatus)
		sample.EngineStatus = &es
	}
	return sample
}

// registerRequest provisions a vehicle record, optionally pairing it with a
// device. An unpaired vehicle cannot receive telemetry until a later update
// assigns it a hardware id.
type registerRequest struct {
	ID         string `json:"id" validate:"required"`
	HardwareID string `json:"hardwareId,omitempty"`
}

// commandRequest is the operator intake payload.
type commandRequest struct {
	EngineStatus string `json:"engineStatus" validate:"required,oneof=ON OFF BLOCKED"`
}

// telemetryResponse acknowledges an accepted sample with the normalized
// position the hub now holds for the vehicle.
type telemetryResponse struct {
	Success              bool           `json:"success"`
	AcknowledgedPosition model.Position `json:"acknowledgedPosition"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error(err, "Failed to encode response")
	}
}

// writeError maps the core failure kinds to status codes. This is the only
// place the taxonomy meets HTTP.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		status = http.StatusConflict
	}

	writeJSON(w, status, errorResponse{Success: false, Message: err.Error()})
}
