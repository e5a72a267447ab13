package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callsync/models"
)

func syncPayload(deviceID string, calls []models.CallLogEntry) models.SyncRequest {
	return models.SyncRequest{DeviceID: deviceID, UserID: "user-1", Calls: calls}
}

func TestSyncRejectsUnregisteredDevice(t *testing.T) {
	server, _ := newDeviceServer(t)
	status, body := postJSON(t, server.URL+"/calls/sync", syncPayload("ghost", []models.CallLogEntry{
		{CallID: "c1", PhoneNumber: "+15550000001", Timestamp: "2026-08-20T10:00:00Z"},
	}))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])
}

func TestSyncStoresAndDeduplicates(t *testing.T) {
	server, store := newDeviceServer(t)
	registerTestDevice(t, server.URL, "linux_abc")

	batch := []models.CallLogEntry{
		{CallID: "c1", PhoneNumber: "+15550000001", CallType: models.CallIncoming, Timestamp: "2026-08-20T10:00:00Z"},
		{CallID: "c2", PhoneNumber: "+15550000002", CallType: models.CallMissed, Timestamp: "2026-08-20T11:00:00Z"},
	}

	status, body := postJSON(t, server.URL+"/calls/sync", syncPayload("linux_abc", batch))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	metrics := body["syncMetrics"].(map[string]interface{})
	assert.EqualValues(t, 2, metrics["syncedCount"])
	assert.EqualValues(t, 0, metrics["duplicateCount"])

	// Resend: the server is the dedup authority
	status, body = postJSON(t, server.URL+"/calls/sync", syncPayload("linux_abc", batch))
	require.Equal(t, http.StatusOK, status)
	metrics = body["syncMetrics"].(map[string]interface{})
	assert.EqualValues(t, 0, metrics["syncedCount"])
	assert.EqualValues(t, 2, metrics["duplicateCount"])

	calls, err := store.ListCalls(context.Background(), "linux_abc")
	require.NoError(t, err)
	assert.Len(t, calls, 2)
}

func TestSyncCountsInvalidEntries(t *testing.T) {
	server, store := newDeviceServer(t)
	registerTestDevice(t, server.URL, "linux_abc")

	batch := []models.CallLogEntry{
		{CallID: "c1", PhoneNumber: "+15550000001", Timestamp: "2026-08-20T10:00:00Z"},
		{CallID: "", PhoneNumber: "+15550000002", Timestamp: "2026-08-20T11:00:00Z"}, // no id
		{CallID: "c3", PhoneNumber: "", Timestamp: "2026-08-20T12:00:00Z"},           // no number
	}

	status, body := postJSON(t, server.URL+"/calls/sync", syncPayload("linux_abc", batch))
	// Partial failure still reports overall success with per-entry accounting
	assert.Equal(t, http.StatusMultiStatus, status)
	assert.Equal(t, true, body["success"])
	metrics := body["syncMetrics"].(map[string]interface{})
	assert.EqualValues(t, 1, metrics["syncedCount"])
	assert.EqualValues(t, 2, metrics["errorCount"])

	calls, err := store.ListCalls(context.Background(), "linux_abc")
	require.NoError(t, err)
	assert.Len(t, calls, 1)
}

func TestSyncEmptyBatch(t *testing.T) {
	server, _ := newDeviceServer(t)
	registerTestDevice(t, server.URL, "linux_abc")

	status, body := postJSON(t, server.URL+"/calls/sync", syncPayload("linux_abc", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	metrics := body["syncMetrics"].(map[string]interface{})
	assert.EqualValues(t, 0, metrics["syncedCount"])
}

func TestSyncRequiresDeviceID(t *testing.T) {
	server, _ := newDeviceServer(t)
	status, _ := postJSON(t, server.URL+"/calls/sync", syncPayload("", nil))
	assert.Equal(t, http.StatusBadRequest, status)
}
