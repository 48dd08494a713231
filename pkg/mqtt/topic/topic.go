package topic

import (
	"fmt"
	"strings"
)

// Constants defining the standard topic segments. These act as the protocol
// contract between the hub and device firmware / dashboard clients; changing
// them breaks compatibility with deployed devices.
const (
	// SuffixTelemetry is the upstream telemetry topic (Device -> Hub).
	// Structure: {root}/telemetry/{hardwareID}
	SuffixTelemetry = "telemetry"

	// SuffixVehicleState is the downstream state topic (Hub -> Dashboards).
	// Structure: {root}/vehicles/{vehicleID}/state
	SuffixVehicleState = "vehicles"
)

// Builder encapsulates the construction of MQTT topic strings for the fleet
// namespace, keeping the topology in one place.
type Builder struct {
	// root is the base namespace for all topics (e.g. "fleet/v1").
	root string
}

// NewBuilder creates a new Builder with the specified root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: root}
}

// Telemetry returns the topic a device publishes telemetry samples to.
// Direction: Device -> Hub
func (b *Builder) Telemetry(hardwareID string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, SuffixTelemetry, hardwareID)
}

// TelemetryWildcard returns the filter the hub subscribes with to receive
// telemetry from every device. Result: {root}/telemetry/+
func (b *Builder) TelemetryWildcard() string {
	return b.Telemetry(Wildcard)
}

// VehicleState returns the topic the hub publishes a vehicle's
// post-reconciliation state to. Direction: Hub -> Dashboards
func (b *Builder) VehicleState(vehicleID string) string {
	return fmt.Sprintf("%s/%s/%s/state", b.root, SuffixVehicleState, vehicleID)
}

// HardwareID extracts the hardware identifier from a telemetry topic. It
// returns false when the topic does not belong to the telemetry namespace.
func (b *Builder) HardwareID(topic string) (string, bool) {
	prefix := b.root + "/" + SuffixTelemetry + "/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(topic, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
