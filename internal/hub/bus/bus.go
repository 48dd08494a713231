// Package bus implements the in-process fanout layer. Every accepted vehicle
// state change is pushed to all currently registered sessions; delivery is
// best-effort and never blocks on an individual subscriber.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/core"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/model"
	"github.com/fleetgrid-io/fleetgrid/internal/pkg/metrics"
	"github.com/fleetgrid-io/fleetgrid/pkg/log"
)

// defaultBuffer is the per-session channel depth. A session that falls this
// far behind starts missing updates; snapshots are whole-state, so it
// recovers on the next one.
const defaultBuffer = 32

var _ core.Broadcaster = (*Bus)(nil)

// Bus holds the live set of subscriber sessions. Construct with New, inject
// into the gateways, and Close during shutdown.
type Bus struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session
	nextID   uint64
	closed   bool
}

// Session is one subscriber's handle. Updates are consumed from Updates();
// the channel closes when the session is unsubscribed or the bus shuts down.
type Session struct {
	id uint64
	ch chan *model.VehicleUpdate

	closeOnce sync.Once
}

// Updates returns the session's delivery channel.
func (s *Session) Updates() <-chan *model.VehicleUpdate {
	return s.ch
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.ch)
	})
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		sessions: make(map[uint64]*Session),
	}
}

// Subscribe registers a new session. No backlog is replayed: a new subscriber
// catches up with a full snapshot read and then follows the stream.
func (b *Bus) Subscribe() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &Session{
		id: b.nextID,
		ch: make(chan *model.VehicleUpdate, defaultBuffer),
	}
	b.nextID++

	if b.closed {
		// The bus is shutting down; hand back an already-closed session so
		// the caller's receive loop exits immediately.
		s.close()
		return s
	}

	b.sessions[s.id] = s
	metrics.BusSubscribers.Set(float64(len(b.sessions)))
	return s
}

// Unsubscribe removes the session and closes its channel. It is idempotent
// and safe to call concurrently with Publish.
func (b *Bus) Unsubscribe(s *Session) {
	if s == nil {
		return
	}

	b.mu.Lock()
	_, registered := b.sessions[s.id]
	delete(b.sessions, s.id)
	metrics.BusSubscribers.Set(float64(len(b.sessions)))
	b.mu.Unlock()

	if registered {
		s.close()
	}
}

// Publish delivers the update to every registered session. A session whose
// buffer is full misses this update; publishing never waits for it.
func (b *Bus) Publish(ctx context.Context, update *model.VehicleUpdate) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("fanout bus is closed")
	}

	for _, s := range b.sessions {
		select {
		case s.ch <- update:
		default:
			metrics.BusDropped.Inc()
			log.Debug("Dropped update on slow subscriber", "session", s.id, "vehicle", update.Vehicle.ID)
		}
	}

	return nil
}

// Close shuts the bus down, closing every session channel. Publish calls
// after Close return an error.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, s := range b.sessions {
		delete(b.sessions, id)
		s.close()
	}
	metrics.BusSubscribers.Set(0)
}
