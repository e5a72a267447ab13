package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"callsync/db"
	"callsync/models"
)

// SyncHandler receives call log batches from agents. The server is the
// deduplication authority: resent batches are counted as duplicates, not
// errors.
type SyncHandler struct {
	store db.Store
}

func NewSyncHandler(store db.Store) *SyncHandler {
	return &SyncHandler{
		store: store,
	}
}

// HandleSync handles a call log batch upload
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.SyncRequest
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

	// Drop entries missing the fields deduplication depends on
	valid := make([]models.CallLogEntry, 0, len(req.Calls))
	errorCount := 0
	for _, call := range req.Calls {
		if call.CallID == "" || call.PhoneNumber == "" {
			errorCount++
			continue
		}
		valid = append(valid, call)
	}

	inserted, duplicates, err := h.store.SaveCalls(r.Context(), req.DeviceID, req.UserID, valid)
	if err != nil {
		log.Printf("❌ Failed to store calls for %s: %v", req.DeviceID, err)
		writeError(w, "Failed to store calls", http.StatusInternalServerError)
		return
	}

	if err := h.store.TouchDevice(r.Context(), req.DeviceID, time.Now().UTC()); err != nil {
		log.Printf("⚠️  Failed to update last seen for %s: %v", req.DeviceID, err)
	}

	log.Printf("📤 Sync from %s: %d synced, %d duplicates, %d errors",
		req.DeviceID, inserted, duplicates, errorCount)

	status := http.StatusOK
	if errorCount > 0 {
		status = http.StatusMultiStatus
	}

	writeJSON(w, status, models.SyncResponse{
		Success: true,
		Message: "Sync completed",
		SyncMetrics: &models.SyncMetrics{
			SyncedCount:    inserted,
			DuplicateCount: duplicates,
			ErrorCount:     errorCount,
		},
	})
}
