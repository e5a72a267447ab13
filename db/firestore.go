package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"callsync/models"
)

const (
	devicesCollection = "devices"
	callsCollection   = "calls"
)

// FirestoreStore backs the dev backend with Firestore, matching the hosted
// deployment's layout: one document per device, one document per call keyed
// by the deterministic call id.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore initializes the Firestore client.
func NewFirestoreStore(ctx context.Context, projectID, credentialsPath string) (*FirestoreStore, error) {
	opt := option.WithCredentialsFile(credentialsPath)

	config := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}

	log.Printf("✅ Connected to Firestore project: %s", projectID)

	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) SaveDevice(ctx context.Context, device *models.Device) error {
	_, err := s.client.Collection(devicesCollection).Doc(device.DeviceID).Set(ctx, device)
	if err != nil {
		return fmt.Errorf("failed to save device: %w", err)
	}
	return nil
}

func (s *FirestoreStore) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	doc, err := s.client.Collection(devicesCollection).Doc(deviceID).Get(ctx)
	if err != nil {
		if doc != nil && !doc.Exists() {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	var device models.Device
	if err := doc.DataTo(&device); err != nil {
		return nil, fmt.Errorf("failed to parse device: %w", err)
	}
	return &device, nil
}

func (s *FirestoreStore) ListDevices(ctx context.Context) ([]models.Device, error) {
	iter := s.client.Collection(devicesCollection).Documents(ctx)
	defer iter.Stop()

	var devices []models.Device
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate devices: %w", err)
		}

		var device models.Device
		if err := doc.DataTo(&device); err != nil {
			log.Printf("Warning: failed to parse device %s: %v", doc.Ref.ID, err)
			continue
		}
		devices = append(devices, device)
	}
	return devices, nil
}

func (s *FirestoreStore) TouchDevice(ctx context.Context, deviceID string, seen time.Time) error {
	_, err := s.client.Collection(devicesCollection).Doc(deviceID).Update(ctx, []firestore.Update{
		{Path: "last_seen", Value: seen},
	})
	if err != nil {
		return fmt.Errorf("failed to update device last seen: %w", err)
	}
	return nil
}

func (s *FirestoreStore) SaveCalls(ctx context.Context, deviceID, userID string, calls []models.CallLogEntry) (inserted, duplicates int, err error) {
	now := time.Now().UTC()
	for _, call := range calls {
		ref := s.client.Collection(callsCollection).Doc(call.CallID)
		doc, err := ref.Get(ctx)
		if err == nil && doc.Exists() {
			duplicates++
			continue
		}
		stored := models.StoredCall{
			DeviceID:   deviceID,
			UserID:     userID,
			Call:       call,
			ReceivedAt: now,
		}
		if _, err := ref.Set(ctx, stored); err != nil {
			return inserted, duplicates, fmt.Errorf("failed to save call %s: %w", call.CallID, err)
		}
		inserted++
	}
	return inserted, duplicates, nil
}

func (s *FirestoreStore) ListCalls(ctx context.Context, deviceID string) ([]models.StoredCall, error) {
	query := s.client.Collection(callsCollection).Query
	if deviceID != "" {
		query = query.Where("device_id", "==", deviceID)
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	var calls []models.StoredCall
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate calls: %w", err)
		}

		var call models.StoredCall
		if err := doc.DataTo(&call); err != nil {
			log.Printf("Warning: failed to parse call %s: %v", doc.Ref.ID, err)
			continue
		}
		calls = append(calls, call)
	}
	return calls, nil
}
