package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callsync/models"
	"callsync/storage"
)

func newTestRegistrar(t *testing.T) (*Registrar, *storage.Settings) {
	t.Helper()
	settings, err := storage.NewSettings(t.TempDir())
	require.NoError(t, err)
	return NewRegistrar(NewClient(), settings, 2*time.Second), settings
}

func testInfo() models.DeviceInfo {
	return models.DeviceInfo{Model: "test", Manufacturer: "test", OS: "Linux", Platform: "linux", AppVersion: "2.0.0"}
}

func TestRegisterSuccessOnPrimaryPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/devices/register", func(w http.ResponseWriter, r *http.Request) {
		var req models.RegistrationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "linux_abc", req.DeviceID)
		assert.Equal(t, "user-1", req.UserID)
		assert.True(t, req.Permissions.ReadCallLog)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.RegistrationResponse{Success: true})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	registrar, settings := newTestRegistrar(t)
	endpoint := models.BackendEndpoint{BaseURL: server.URL}

	record, err := registrar.Register(context.Background(), endpoint, "linux_abc", "user-1", testInfo())
	require.NoError(t, err)
	assert.True(t, record.Registered)
	assert.False(t, record.RegisteredAt.IsZero())

	// Registration persists the full session snapshot
	for key, want := range map[string]string{
		storage.KeyDeviceID:         "linux_abc",
		storage.KeyUserID:           "user-1",
		storage.KeyAPIURL:           server.URL,
		storage.KeyDeviceRegistered: "true",
	} {
		value, ok := settings.Load(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, value, key)
	}
	_, ok := settings.Load(storage.KeyLastRegistration)
	assert.True(t, ok)
}

func TestRegisterFallsBackToSimpleRegister(t *testing.T) {
	var primaryHits, fallbackHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/devices/register", func(w http.ResponseWriter, r *http.Request) {
		primaryHits++
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/devices/simple-register", func(w http.ResponseWriter, r *http.Request) {
		fallbackHits++
		json.NewEncoder(w).Encode(models.RegistrationResponse{Success: true})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	registrar, _ := newTestRegistrar(t)
	record, err := registrar.Register(context.Background(), models.BackendEndpoint{BaseURL: server.URL}, "linux_abc", "user-1", testInfo())
	require.NoError(t, err)
	assert.True(t, record.Registered)
	assert.Equal(t, 1, primaryHits)
	assert.Equal(t, 1, fallbackHits)
}

func TestRegisterAcceptsUnparseable2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("registered, thanks"))
	}))
	defer server.Close()

	registrar, _ := newTestRegistrar(t)
	record, err := registrar.Register(context.Background(), models.BackendEndpoint{BaseURL: server.URL}, "linux_abc", "user-1", testInfo())
	require.NoError(t, err)
	assert.True(t, record.Registered)
}

func TestRegisterSurfacesRejectionMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.RegistrationResponse{Success: false, Message: "user quota exceeded"})
	}))
	defer server.Close()

	registrar, settings := newTestRegistrar(t)
	record, err := registrar.Register(context.Background(), models.BackendEndpoint{BaseURL: server.URL}, "linux_abc", "user-1", testInfo())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user quota exceeded")
	assert.False(t, record.Registered)

	// A failed handshake must not mark the device registered
	registered, _ := settings.Load(storage.KeyDeviceRegistered)
	assert.NotEqual(t, "true", registered)
}

func TestRegisterAllPathsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	registrar, _ := newTestRegistrar(t)
	record, err := registrar.Register(context.Background(), models.BackendEndpoint{BaseURL: server.URL}, "linux_abc", "user-1", testInfo())
	require.Error(t, err)
	assert.False(t, record.Registered)
}
