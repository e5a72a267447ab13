package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"callsync/models"
	"callsync/storage"
)

// registrationPaths are tried in order; older backend variants only expose
// the simple-register fallback.
var registrationPaths = []string{"/devices/register", "/devices/simple-register"}

// Registrar performs the registration handshake that associates a device
// identity with a user account on the backend.
type Registrar struct {
	client   *Client
	settings *storage.Settings
	timeout  time.Duration
}

func NewRegistrar(client *Client, settings *storage.Settings, timeout time.Duration) *Registrar {
	return &Registrar{client: client, settings: settings, timeout: timeout}
}

// Register POSTs the registration payload to each path in turn and stops at
// the first success. Success is HTTP 200/201 with success:true in the body; a
// 2xx whose body cannot be parsed as JSON is also accepted, since some
// backend variants answer registration with plain text.
//
// Network errors on one path are non-fatal (next path is tried). A backend
// rejection message is surfaced in the returned error; it is informational
// only. On exhausting all paths the record stays Registered=false and the
// caller must not proceed to sync or heartbeat.
func (r *Registrar) Register(ctx context.Context, endpoint models.BackendEndpoint, deviceID, userID string, info models.DeviceInfo) (models.RegistrationRecord, error) {
	record := models.RegistrationRecord{DeviceID: deviceID, UserID: userID}
	payload := models.RegistrationRequest{
		DeviceID:    deviceID,
		UserID:      userID,
		DeviceInfo:  info,
		Permissions: models.DefaultPermissions(),
	}

	log.Printf("📱 Registering device %s...", deviceID)

	var lastReason string
	for _, path := range registrationPaths {
		url := JoinURL(endpoint.BaseURL, path)
		reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
		status, body, err := r.client.PostJSON(reqCtx, url, payload)
		cancel()
		if err != nil {
			lastReason = err.Error()
			log.Printf("❌ Registration attempt at %s failed: %v", url, err)
			continue
		}

		var resp models.RegistrationResponse
		parsed := json.Unmarshal(body, &resp) == nil

		if status == 200 || status == 201 {
			if !parsed || resp.Success {
				record.Registered = true
				record.RegisteredAt = time.Now().UTC()
				r.persist(record, endpoint)
				log.Printf("✅ Device registered successfully via %s", path)
				return record, nil
			}
			lastReason = resp.Message
			if lastReason == "" {
				lastReason = "backend reported success=false"
			}
			log.Printf("❌ Registration rejected at %s: %s", url, lastReason)
			continue
		}

		if parsed && resp.Message != "" {
			lastReason = resp.Message
		} else {
			lastReason = fmt.Sprintf("unexpected status %d", status)
		}
		log.Printf("❌ Registration failed at %s with status %d", url, status)
	}

	if lastReason == "" {
		lastReason = "all registration paths exhausted"
	}
	return record, fmt.Errorf("registration failed: %s", lastReason)
}

func (r *Registrar) persist(record models.RegistrationRecord, endpoint models.BackendEndpoint) {
	saves := map[string]string{
		storage.KeyDeviceID:         record.DeviceID,
		storage.KeyUserID:           record.UserID,
		storage.KeyAPIURL:           endpoint.BaseURL,
		storage.KeyDeviceRegistered: "true",
		storage.KeyLastRegistration: strconv.FormatInt(record.RegisteredAt.Unix(), 10),
	}
	for key, value := range saves {
		if err := r.settings.Save(key, value); err != nil {
			log.Printf("⚠️  Failed to persist %s: %v", key, err)
		}
	}
}
