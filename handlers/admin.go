package handlers

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"callsync/db"
)

// AdminHandler serves the JWT-guarded inspection endpoints.
type AdminHandler struct {
	store db.Store
}

func NewAdminHandler(store db.Store) *AdminHandler {
	return &AdminHandler{
		store: store,
	}
}

// GetDevices returns all registered devices
func (h *AdminHandler) GetDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	devices, err := h.store.ListDevices(r.Context())
	if err != nil {
		log.Printf("❌ Failed to list devices: %v", err)
		writeError(w, "Failed to retrieve devices", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"devices": devices,
		"count":   len(devices),
	})
}

// GetCalls returns synced calls, optionally filtered by device_id
func (h *AdminHandler) GetCalls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	calls, err := h.store.ListCalls(r.Context(), deviceID)
	if err != nil {
		log.Printf("❌ Failed to list calls: %v", err)
		writeError(w, "Failed to retrieve calls", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"calls": calls,
		"count": len(calls),
	})
}

// ExportCSV streams all synced calls as a CSV download
func (h *AdminHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	calls, err := h.store.ListCalls(r.Context(), deviceID)
	if err != nil {
		log.Printf("❌ Failed to list calls for export: %v", err)
		writeError(w, "Failed to retrieve calls", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("callsync_export_%s.csv", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{
		"call_id", "device_id", "user_id", "phone_number", "contact_name",
		"call_type", "duration_seconds", "timestamp", "received_at",
	})

	for _, call := range calls {
		record := []string{
			call.Call.CallID,
			call.DeviceID,
			call.UserID,
			call.Call.PhoneNumber,
			call.Call.ContactName,
			string(call.Call.CallType),
			strconv.Itoa(call.Call.DurationSeconds),
			call.Call.Timestamp,
			call.ReceivedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			log.Printf("❌ CSV export aborted: %v", err)
			return
		}
	}

	log.Printf("📊 Exported %d calls to CSV", len(calls))
}
