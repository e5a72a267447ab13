package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"callsync/config"
	"callsync/db"
	"callsync/models"
)

// DeviceHandler serves the discovery, registration and heartbeat endpoints
// the agent talks to.
type DeviceHandler struct {
	store db.Store
}

func NewDeviceHandler(store db.Store) *DeviceHandler {
	return &DeviceHandler{
		store: store,
	}
}

// Root serves the API root discovery response. Agents probe base URLs both
// with and without the /api prefix.
func (h *DeviceHandler) Root(w http.ResponseWriter, r *http.Request) {
	// The root pattern matches every unregistered path
	switch r.URL.Path {
	case "/", "/api", "/api/":
	default:
		writeError(w, "Not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "CallSync Device API",
		"version": config.AppVersion,
		"endpoints": map[string]string{
			"register": "/devices/register",
			"sync":     "/calls/sync",
			"ping":     "/devices/ping",
			"health":   "/health",
		},
	})
}

// Devices serves the device endpoint listing used for discovery probes
func (h *DeviceHandler) Devices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Device management endpoints",
		"version":   config.AppVersion,
		"endpoints": []string{"/devices/register", "/devices/simple-register", "/devices/ping"},
	})
}

// Health serves the health check endpoint
func (h *DeviceHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"version":   config.AppVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Register handles device registration. Both /devices/register and
// /devices/simple-register accept the same payload; re-registration replaces
// the stored record.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.DeviceID == "" {
		writeError(w, "deviceId is required", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	device := &models.Device{
		DeviceID:     req.DeviceID,
		UserID:       req.UserID,
		DeviceInfo:   req.DeviceInfo,
		Permissions:  req.Permissions,
		RegisteredAt: now,
		LastSeen:     now,
	}

	if err := h.store.SaveDevice(r.Context(), device); err != nil {
		log.Printf("❌ Failed to register device %s: %v", req.DeviceID, err)
		writeError(w, "Failed to register device", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Device registered: %s (user: %s, platform: %s)",
		req.DeviceID, req.UserID, req.DeviceInfo.Platform)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"message":  "Device registered successfully",
		"deviceId": req.DeviceID,
	})
}

// Ping handles device heartbeats
func (h *DeviceHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.DeviceID == "" {
		writeError(w, "deviceId is required", http.StatusBadRequest)
		return
	}

	if _, err := h.store.GetDevice(r.Context(), req.DeviceID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"success": false,
				"message": "Device not registered",
			})
			return
		}
		log.Printf("❌ Failed to look up device %s: %v", req.DeviceID, err)
		writeError(w, "Failed to look up device", http.StatusInternalServerError)
		return
	}

	if err := h.store.TouchDevice(r.Context(), req.DeviceID, time.Now().UTC()); err != nil {
		log.Printf("⚠️  Failed to update last seen for %s: %v", req.DeviceID, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "pong",
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
