package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callsync/models"
)

func TestHeartbeatSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/devices/ping", r.URL.Path)
		var req models.HeartbeatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "linux_abc", req.DeviceID)
		assert.Equal(t, "active", req.Status)
		assert.NotZero(t, req.Timestamp)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	sender := NewHeartbeatSender(NewClient(), 2*time.Second, 2)
	assert.True(t, sender.Heartbeat(context.Background(), models.BackendEndpoint{BaseURL: server.URL}, "linux_abc"))
}

func TestHeartbeatBoundedRetries(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	sender := NewHeartbeatSender(NewClient(), 2*time.Second, 2)
	ok := sender.Heartbeat(context.Background(), models.BackendEndpoint{BaseURL: server.URL}, "linux_abc")
	assert.False(t, ok)
	assert.EqualValues(t, 2, atomic.LoadInt64(&hits))
}

func TestHeartbeatNon200IsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	sender := NewHeartbeatSender(NewClient(), 2*time.Second, 1)
	assert.False(t, sender.Heartbeat(context.Background(), models.BackendEndpoint{BaseURL: server.URL}, "linux_abc"))
}
