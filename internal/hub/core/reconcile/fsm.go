package reconcile

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/model"
	fsmutil "github.com/fleetgrid-io/fleetgrid/internal/pkg/util/fsm"
)

// Engine status transition events. Report events originate from device
// telemetry, set events from operator commands. A report event has no source
// state BLOCKED, which is what makes an operator override immune to stale or
// malicious telemetry; set events are valid from every state.
const (
	EventReportOn   = "report_on"
	EventReportOff  = "report_off"
	EventSetOn      = "set_on"
	EventSetOff     = "set_off"
	EventSetBlocked = "set_blocked"
)

func newEngineMachine(initial model.EngineStatus) *fsm.FSM {
	reportSrc := []string{string(model.EngineOn), string(model.EngineOff)}
	anySrc := []string{string(model.EngineOn), string(model.EngineOff), string(model.EngineBlocked)}

	return fsm.NewFSM(string(initial), fsm.Events{
		{Name: EventReportOn, Src: reportSrc, Dst: string(model.EngineOn)},
		{Name: EventReportOff, Src: reportSrc, Dst: string(model.EngineOff)},
		{Name: EventSetOn, Src: anySrc, Dst: string(model.EngineOn)},
		{Name: EventSetOff, Src: anySrc, Dst: string(model.EngineOff)},
		{Name: EventSetBlocked, Src: anySrc, Dst: string(model.EngineBlocked)},
	}, fsm.Callbacks{})
}

func reportEvent(s model.EngineStatus) string {
	if s == model.EngineOn {
		return EventReportOn
	}
	return EventReportOff
}

func setEvent(s model.EngineStatus) string {
	switch s {
	case model.EngineOn:
		return EventSetOn
	case model.EngineOff:
		return EventSetOff
	default:
		return EventSetBlocked
	}
}

// fire runs one event on a fresh machine seeded with current and returns the
// resulting status. An event that is not permitted from the current state
// (telemetry against a BLOCKED vehicle) leaves the status unchanged, as does
// a no-op transition into the same state.
func fire(current model.EngineStatus, event string) model.EngineStatus {
	m := newEngineMachine(current)

	err := m.Event(context.Background(), event)
	if fsmutil.IsRealError(err) {
		// InvalidEventError: the machine forbids this transition.
		return current
	}

	return model.EngineStatus(m.Current())
}
