package backend

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"callsync/models"
)

// heartbeatPath is the liveness endpoint for registered devices.
const heartbeatPath = "/devices/ping"

// HeartbeatSender posts periodic liveness pings. Heartbeat failures are
// logged and swallowed; they must never crash or block the run loop.
type HeartbeatSender struct {
	client      *Client
	timeout     time.Duration
	maxAttempts int
}

func NewHeartbeatSender(client *Client, timeout time.Duration, maxAttempts int) *HeartbeatSender {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &HeartbeatSender{client: client, timeout: timeout, maxAttempts: maxAttempts}
}

// Heartbeat returns true only when the backend answered HTTP 200. Retries a
// small bounded number of times, then gives up silently.
func (h *HeartbeatSender) Heartbeat(ctx context.Context, endpoint models.BackendEndpoint, deviceID string) bool {
	url := JoinURL(endpoint.BaseURL, heartbeatPath)

	attempt := func() error {
		payload := models.HeartbeatRequest{
			DeviceID:  deviceID,
			Timestamp: time.Now().Unix(),
			Status:    "active",
		}
		reqCtx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()
		status, _, err := h.client.PostJSON(reqCtx, url, payload)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("ping returned status %d", status)
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(2*time.Second), uint64(h.maxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		log.Printf("❌ Heartbeat failed for device %s: %v", deviceID, err)
		return false
	}
	log.Printf("💓 Ping successful for device: %s", deviceID)
	return true
}
