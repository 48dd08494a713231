package mqtt

import (
	"context"
	"encoding/json"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/model"
	"github.com/fleetgrid-io/fleetgrid/pkg/log"
)

// telemetryPayload is the device wire format. The hardware id comes from the
// topic, not the body, so a device cannot report on another device's behalf
// by spoofing the payload.
type telemetryPayload struct {
	Position   *positionPayload `json:"position"`
	Speed      *float64         `json:"speed"`
	Fuel       *float64         `json:"fuel"`
	Satellites *int             `json:"satellites"`
	Signal     *int             `json:"signal"`
	Battery    *float64         `json:"battery"`
	Engine     *string          `json:"engineStatus"`
}

type positionPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// handleTelemetry ingests one device sample. MQTT is fire-and-forget from
// the device's side: failures are logged and the message dropped, never
// replied to.
func (s *Server) handleTelemetry(ctx context.Context, msgTopic string, payload []byte) {
	hardwareID, ok := s.topics.HardwareID(msgTopic)
	if !ok {
		log.Warn("Ignoring message outside the telemetry namespace", "topic", msgTopic)
		return
	}

	var body telemetryPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		log.Error(err, "Failed to decode telemetry payload", "hardwareId", hardwareID)
		return
	}

	sample := &model.TelemetrySample{
		HardwareID:     hardwareID,
		Speed:          body.Speed,
		FuelLevel:      body.Fuel,
		Satellites:     body.Satellites,
		SignalStrength: body.Signal,
		BatteryLevel:   body.Battery,
	}
	if body.Position != nil {
		sample.Position = &model.Position{
			Latitude:  body.Position.Latitude,
			Longitude: body.Position.Longitude,
		}
	}
	if body.Engine != nil {
		es := model.EngineStatus(*body.Engine)
		sample.EngineStatus = &es
	}

	if _, err := s.svc.IngestTelemetry(ctx, sample); err != nil {
		log.Error(err, "Failed to ingest device telemetry", "hardwareId", hardwareID)
		return
	}

	log.Debug("Ingested device telemetry", "hardwareId", hardwareID)
}
