package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"callsync/models"
)

// MemoryStore keeps everything in process memory. It is the default store
// for local development and the test suite.
type MemoryStore struct {
	mu      sync.RWMutex
	devices map[string]models.Device
	calls   map[string]models.StoredCall
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices: make(map[string]models.Device),
		calls:   make(map[string]models.StoredCall),
	}
}

func (s *MemoryStore) SaveDevice(_ context.Context, device *models.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[device.DeviceID] = *device
	return nil
}

func (s *MemoryStore) GetDevice(_ context.Context, deviceID string) (*models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	device, ok := s.devices[deviceID]
	if !ok {
		return nil, ErrNotFound
	}
	return &device, nil
}

func (s *MemoryStore) ListDevices(_ context.Context) ([]models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	devices := make([]models.Device, 0, len(s.devices))
	for _, device := range s.devices {
		devices = append(devices, device)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].DeviceID < devices[j].DeviceID })
	return devices, nil
}

func (s *MemoryStore) TouchDevice(_ context.Context, deviceID string, seen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	device, ok := s.devices[deviceID]
	if !ok {
		return ErrNotFound
	}
	device.LastSeen = seen
	s.devices[deviceID] = device
	return nil
}

func (s *MemoryStore) SaveCalls(_ context.Context, deviceID, userID string, calls []models.CallLogEntry) (inserted, duplicates int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, call := range calls {
		if _, exists := s.calls[call.CallID]; exists {
			duplicates++
			continue
		}
		s.calls[call.CallID] = models.StoredCall{
			DeviceID:   deviceID,
			UserID:     userID,
			Call:       call,
			ReceivedAt: now,
		}
		inserted++
	}
	return inserted, duplicates, nil
}

func (s *MemoryStore) ListCalls(_ context.Context, deviceID string) ([]models.StoredCall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	calls := make([]models.StoredCall, 0, len(s.calls))
	for _, call := range s.calls {
		if deviceID != "" && call.DeviceID != deviceID {
			continue
		}
		calls = append(calls, call)
	}
	sort.Slice(calls, func(i, j int) bool { return calls[i].Call.Timestamp > calls[j].Call.Timestamp })
	return calls, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
