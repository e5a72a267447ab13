// Package db provides the dev backend's storage layer. The memory store is
// the default (tests, local runs); the Firestore store mirrors the hosted
// deployment. Selected once at startup via configuration.
package db

import (
	"context"
	"errors"
	"time"

	"callsync/models"
)

// ErrNotFound is returned when a device or call record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface behind the dev backend handlers.
type Store interface {
	// SaveDevice creates or replaces a device registration.
	SaveDevice(ctx context.Context, device *models.Device) error
	// GetDevice returns ErrNotFound for unregistered device ids.
	GetDevice(ctx context.Context, deviceID string) (*models.Device, error)
	ListDevices(ctx context.Context) ([]models.Device, error)
	// TouchDevice updates a device's last-seen timestamp.
	TouchDevice(ctx context.Context, deviceID string, seen time.Time) error

	// SaveCalls stores a batch, deduplicating by call id. The backend is the
	// deduplication authority for resent batches.
	SaveCalls(ctx context.Context, deviceID, userID string, calls []models.CallLogEntry) (inserted, duplicates int, err error)
	// ListCalls returns calls for one device, or all calls when deviceID is
	// empty.
	ListCalls(ctx context.Context, deviceID string) ([]models.StoredCall, error)

	Close() error
}
