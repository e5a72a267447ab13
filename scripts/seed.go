package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"callsync/calllog"
	"callsync/config"
	"callsync/db"
	"callsync/models"
)

// Seeds the Firestore store with sample devices and calls so the admin API
// has data to inspect before any real agent connects.
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	cfg := config.LoadServer()
	cfg.Validate()

	if cfg.Store.Backend != "firestore" {
		log.Fatal("Seeding requires STORE_BACKEND=firestore; the memory store does not outlive this process")
	}

	// Initialize Firestore
	ctx := context.Background()
	store, err := db.NewFirestoreStore(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firestore: %v", err)
	}
	defer store.Close()

	log.Println("🌱 Starting database seeding...")

	if err := seedDevices(ctx, store); err != nil {
		log.Fatalf("Failed to seed devices: %v", err)
	}

	if err := seedCalls(ctx, store); err != nil {
		log.Fatalf("Failed to seed calls: %v", err)
	}

	log.Println("✅ Database seeding completed successfully!")
}

func sampleDevices() []models.Device {
	now := time.Now().UTC()
	return []models.Device{
		{
			DeviceID: "android_a1b2c3d4e5f60718",
			UserID:   "9f86d081884c",
			DeviceInfo: models.DeviceInfo{
				Model:        "Pixel 8",
				Manufacturer: "Google",
				OS:           "android",
				OSVersion:    "14",
				AppVersion:   config.AppVersion,
				Platform:     "android",
			},
			Permissions:  models.DefaultPermissions(),
			RegisteredAt: now.Add(-48 * time.Hour),
			LastSeen:     now,
		},
		{
			DeviceID: "linux_0011223344556677",
			UserID:   "2c26b46b68ff",
			DeviceInfo: models.DeviceInfo{
				Model:        "workstation",
				Manufacturer: "generic",
				OS:           "linux",
				OSVersion:    "6.8",
				AppVersion:   config.AppVersion,
				Platform:     "linux",
			},
			Permissions:  models.DefaultPermissions(),
			RegisteredAt: now.Add(-24 * time.Hour),
			LastSeen:     now.Add(-2 * time.Hour),
		},
	}
}

func seedDevices(ctx context.Context, store db.Store) error {
	for _, device := range sampleDevices() {
		if err := store.SaveDevice(ctx, &device); err != nil {
			return fmt.Errorf("failed to create device %s: %w", device.DeviceID, err)
		}
		log.Printf("  ✓ Created device: %s (user: %s)", device.DeviceID, device.UserID)
	}
	return nil
}

func seedCalls(ctx context.Context, store db.Store) error {
	for _, device := range sampleDevices() {
		source := calllog.NewSampleSource(device.DeviceID)
		calls, err := source.Calls(ctx, 20)
		if err != nil {
			return fmt.Errorf("failed to generate calls for %s: %w", device.DeviceID, err)
		}

		inserted, duplicates, err := store.SaveCalls(ctx, device.DeviceID, device.UserID, calls)
		if err != nil {
			return fmt.Errorf("failed to store calls for %s: %w", device.DeviceID, err)
		}
		log.Printf("  ✓ Seeded calls for %s: %d inserted, %d duplicates", device.DeviceID, inserted, duplicates)
	}
	return nil
}
