package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/core"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/model"
)

var _ core.VehicleRepository = (*Memory)(nil)

// Memory is an in-process VehicleRepository. It backs tests and
// development runs; state does not survive a restart.
type Memory struct {
	mu       sync.RWMutex
	vehicles map[string]*model.Vehicle
	hwIndex  map[string]string // hardwareID -> vehicleID
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		vehicles: make(map[string]*model.Vehicle),
		hwIndex:  make(map[string]string),
	}
}

func (m *Memory) Get(ctx context.Context, id string) (*model.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return v.Clone(), nil
}

func (m *Memory) GetByHardwareID(ctx context.Context, hardwareID string) (*model.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.hwIndex[hardwareID]
	if !ok {
		return nil, fmt.Errorf("%w: hardware id %s", core.ErrNotFound, hardwareID)
	}
	return m.vehicles[id].Clone(), nil
}

func (m *Memory) Create(ctx context.Context, vehicle *model.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.vehicles[vehicle.ID]; exists {
		return fmt.Errorf("%w: vehicle %s already exists", core.ErrConflict, vehicle.ID)
	}
	if vehicle.HardwareID != "" {
		if _, taken := m.hwIndex[vehicle.HardwareID]; taken {
			return fmt.Errorf("%w: hardware id %s already paired", core.ErrConflict, vehicle.HardwareID)
		}
		m.hwIndex[vehicle.HardwareID] = vehicle.ID
	}

	m.vehicles[vehicle.ID] = vehicle.Clone()
	return nil
}

func (m *Memory) Update(ctx context.Context, vehicle *model.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.vehicles[vehicle.ID]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrNotFound, vehicle.ID)
	}
	if stored.Version != vehicle.Version {
		return fmt.Errorf("%w: vehicle %s at version %d, update carries %d",
			core.ErrConflict, vehicle.ID, stored.Version, vehicle.Version)
	}

	vehicle.Version++
	m.vehicles[vehicle.ID] = vehicle.Clone()

	if stored.HardwareID != vehicle.HardwareID {
		delete(m.hwIndex, stored.HardwareID)
		if vehicle.HardwareID != "" {
			m.hwIndex[vehicle.HardwareID] = vehicle.ID
		}
	}

	return nil
}

func (m *Memory) List(ctx context.Context) ([]*model.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		out = append(out, v.Clone())
	}
	return out, nil
}

func (m *Memory) Healthy(ctx context.Context) error {
	return nil
}
