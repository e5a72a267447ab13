package synclog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callsync/backend"
	"callsync/config"
	"callsync/models"
	"callsync/storage"
)

type fakeSession struct {
	endpoint      models.BackendEndpoint
	registered    bool
	registerErr   error
	registerCalls int
}

func (f *fakeSession) Endpoint() models.BackendEndpoint { return f.endpoint }
func (f *fakeSession) DeviceID() string                 { return "linux_abc" }
func (f *fakeSession) UserID() string                   { return "user-1" }
func (f *fakeSession) Registered() bool                 { return f.registered }

func (f *fakeSession) EnsureRegistered(ctx context.Context) error {
	f.registerCalls++
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = true
	return nil
}

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		Interval:    time.Minute,
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		BackoffCap:  5 * time.Millisecond,
		BatchLimit:  100,
	}
}

func newTestCoordinator(t *testing.T) (*Coordinator, *storage.Settings) {
	t.Helper()
	settings, err := storage.NewSettings(t.TempDir())
	require.NoError(t, err)
	return NewCoordinator(backend.NewClient(), settings, testSyncConfig(), 2*time.Second), settings
}

func makeCalls(n int) []models.CallLogEntry {
	calls := make([]models.CallLogEntry, 0, n)
	for i := 0; i < n; i++ {
		calls = append(calls, models.CallLogEntry{
			PhoneNumber:     fmt.Sprintf("+1555000%04d", i),
			CallType:        models.CallIncoming,
			DurationSeconds: i,
			Timestamp:       "2026-08-20T10:00:00Z",
			CallID:          fmt.Sprintf("call%012d", i),
		})
	}
	return calls
}

func TestSyncEmptyBatchMakesNoRequests(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
	}))
	defer server.Close()

	coord, _ := newTestCoordinator(t)
	sess := &fakeSession{endpoint: models.BackendEndpoint{BaseURL: server.URL}, registered: true}

	result, err := coord.Sync(context.Background(), sess, nil)
	require.NoError(t, err)
	assert.Zero(t, result)
	assert.Zero(t, atomic.LoadInt64(&hits))

	// Trivial success leaves the bookkeeping untouched
	state := coord.State()
	assert.Nil(t, state.LastSyncTime)
	assert.Zero(t, state.TotalSynced)
	assert.Zero(t, state.Failures)
}

func TestSyncSuccessUpdatesState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calls/sync", r.URL.Path)
		var req models.SyncRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "linux_abc", req.DeviceID)
		json.NewEncoder(w).Encode(models.SyncResponse{
			Success:     true,
			SyncMetrics: &models.SyncMetrics{SyncedCount: 8, DuplicateCount: 2},
		})
	}))
	defer server.Close()

	coord, settings := newTestCoordinator(t)
	sess := &fakeSession{endpoint: models.BackendEndpoint{BaseURL: server.URL}, registered: true}

	result, err := coord.Sync(context.Background(), sess, makeCalls(10))
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{Synced: 8, Duplicates: 2}, result)

	state := coord.State()
	require.NotNil(t, state.LastSyncTime)
	assert.Equal(t, 8, state.TotalSynced)
	assert.Zero(t, state.Failures)

	// Both the JSON state and the legacy timestamp key are persisted
	var persisted models.SyncState
	found, err := settings.LoadJSON(storage.KeySyncState, &persisted)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 8, persisted.TotalSynced)
	_, ok := settings.Load(storage.KeyLastSync)
	assert.True(t, ok)
}

func TestSyncTopLevelMetricsFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"syncedCount":3,"duplicateCount":1,"errorCount":1}`))
	}))
	defer server.Close()

	coord, _ := newTestCoordinator(t)
	sess := &fakeSession{endpoint: models.BackendEndpoint{BaseURL: server.URL}, registered: true}

	result, err := coord.Sync(context.Background(), sess, makeCalls(5))
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{Synced: 3, Duplicates: 1, Errors: 1}, result)
}

func TestSyncDefaultsMetricsToBatchSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	coord, _ := newTestCoordinator(t)
	sess := &fakeSession{endpoint: models.BackendEndpoint{BaseURL: server.URL}, registered: true}

	result, err := coord.Sync(context.Background(), sess, makeCalls(7))
	require.NoError(t, err)
	assert.Equal(t, 7, result.Synced)
}

func TestSyncAcceptsPartialSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
		json.NewEncoder(w).Encode(models.SyncResponse{
			Success:     true,
			SyncMetrics: &models.SyncMetrics{SyncedCount: 4, ErrorCount: 1},
		})
	}))
	defer server.Close()

	coord, _ := newTestCoordinator(t)
	sess := &fakeSession{endpoint: models.BackendEndpoint{BaseURL: server.URL}, registered: true}

	result, err := coord.Sync(context.Background(), sess, makeCalls(5))
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{Synced: 4, Errors: 1}, result)
	assert.Zero(t, coord.State().Failures)
}

func TestSyncFailureRetriesThenCountsOnce(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"message":"storage unavailable"}`))
	}))
	defer server.Close()

	coord, _ := newTestCoordinator(t)
	sess := &fakeSession{endpoint: models.BackendEndpoint{BaseURL: server.URL}, registered: true}

	_, err := coord.Sync(context.Background(), sess, makeCalls(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage unavailable")

	// All attempts exhausted, but one Sync call accounts for one failure
	assert.EqualValues(t, testSyncConfig().MaxAttempts, atomic.LoadInt64(&hits))
	assert.Equal(t, 1, coord.State().Failures)

	_, err = coord.Sync(context.Background(), sess, makeCalls(3))
	require.Error(t, err)
	assert.Equal(t, 2, coord.State().Failures)
}

func TestSyncCapsBatch(t *testing.T) {
	var received int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.SyncRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		atomic.StoreInt64(&received, int64(len(req.Calls)))
		json.NewEncoder(w).Encode(models.SyncResponse{Success: true})
	}))
	defer server.Close()

	coord, _ := newTestCoordinator(t)
	sess := &fakeSession{endpoint: models.BackendEndpoint{BaseURL: server.URL}, registered: true}

	result, err := coord.Sync(context.Background(), sess, makeCalls(250))
	require.NoError(t, err)
	assert.EqualValues(t, testSyncConfig().BatchLimit, atomic.LoadInt64(&received))
	assert.Equal(t, testSyncConfig().BatchLimit, result.Synced)
}

func TestSyncRegistersFirstWhenNeeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.SyncResponse{Success: true})
	}))
	defer server.Close()

	coord, _ := newTestCoordinator(t)
	sess := &fakeSession{endpoint: models.BackendEndpoint{BaseURL: server.URL}}

	_, err := coord.Sync(context.Background(), sess, makeCalls(2))
	require.NoError(t, err)
	assert.Equal(t, 1, sess.registerCalls)
	assert.True(t, sess.registered)
}

func TestSyncPreconditionFailure(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
	}))
	defer server.Close()

	coord, _ := newTestCoordinator(t)
	sess := &fakeSession{
		endpoint:    models.BackendEndpoint{BaseURL: server.URL},
		registerErr: errors.New("backend rejected registration"),
	}

	_, err := coord.Sync(context.Background(), sess, makeCalls(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend rejected registration")

	// No upload is attempted and the failure is counted exactly once
	assert.Zero(t, atomic.LoadInt64(&hits))
	assert.Equal(t, 1, coord.State().Failures)
}

func TestCoordinatorRestoresState(t *testing.T) {
	settings, err := storage.NewSettings(t.TempDir())
	require.NoError(t, err)
	when := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	require.NoError(t, settings.SaveJSON(storage.KeySyncState, models.SyncState{
		LastSyncTime: &when,
		TotalSynced:  120,
		Failures:     3,
	}))

	coord := NewCoordinator(backend.NewClient(), settings, testSyncConfig(), time.Second)
	state := coord.State()
	require.NotNil(t, state.LastSyncTime)
	assert.True(t, when.Equal(*state.LastSyncTime))
	assert.Equal(t, 120, state.TotalSynced)
	assert.Equal(t, 3, state.Failures)
}

func TestLinearBackOffProgression(t *testing.T) {
	b := newLinearBackOff(2*time.Second, 5*time.Second)
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 4*time.Second, b.NextBackOff())
	assert.Equal(t, 5*time.Second, b.NextBackOff()) // capped
	assert.Equal(t, 5*time.Second, b.NextBackOff())
	b.Reset()
	assert.Equal(t, 2*time.Second, b.NextBackOff())
}
