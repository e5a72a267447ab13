// Package synclog uploads locally-sourced call log records to the backend
// and tracks persistent sync bookkeeping.
package synclog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"callsync/backend"
	"callsync/config"
	"callsync/models"
	"callsync/storage"
)

// syncPath is the canonical upload endpoint.
const syncPath = "/calls/sync"

// Session is the slice of agent session state the coordinator depends on.
// Registration must have completed before any upload is attempted.
type Session interface {
	Endpoint() models.BackendEndpoint
	DeviceID() string
	UserID() string
	Registered() bool
	// EnsureRegistered runs the registration handshake once when the device
	// is not yet registered.
	EnsureRegistered(ctx context.Context) error
}

// Coordinator packages call log batches and POSTs them to the backend. One
// Sync call makes strictly sequential retry attempts and accounts for at most
// one failure, no matter how many internal attempts were made.
type Coordinator struct {
	client   *backend.Client
	settings *storage.Settings
	cfg      config.SyncConfig
	timeout  time.Duration

	mu    sync.Mutex
	state models.SyncState
}

// NewCoordinator restores persisted sync state from settings.
func NewCoordinator(client *backend.Client, settings *storage.Settings, cfg config.SyncConfig, timeout time.Duration) *Coordinator {
	c := &Coordinator{client: client, settings: settings, cfg: cfg, timeout: timeout}
	if _, err := settings.LoadJSON(storage.KeySyncState, &c.state); err != nil {
		log.Printf("⚠️  Failed to restore sync state: %v", err)
	}
	return c
}

// State returns a copy of the current sync bookkeeping.
func (c *Coordinator) State() models.SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Sync uploads calls to the backend. An empty batch succeeds trivially with
// zero HTTP requests. The batch is capped at the configured limit (sources
// return newest first, so the cap keeps the most recent calls). Call ids are
// deterministic and the backend is the deduplication authority, so resending
// overlapping batches is safe; the reported counts are the server's.
func (c *Coordinator) Sync(ctx context.Context, sess Session, calls []models.CallLogEntry) (models.SyncResult, error) {
	if !sess.Registered() {
		if err := sess.EnsureRegistered(ctx); err != nil {
			c.recordFailure()
			return models.SyncResult{}, fmt.Errorf("sync precondition failed: %w", err)
		}
	}

	if len(calls) == 0 {
		return models.SyncResult{}, nil
	}
	if len(calls) > c.cfg.BatchLimit {
		calls = calls[:c.cfg.BatchLimit]
	}

	payload := models.SyncRequest{
		DeviceID: sess.DeviceID(),
		UserID:   sess.UserID(),
		Calls:    calls,
	}
	url := backend.JoinURL(sess.Endpoint().BaseURL, syncPath)

	log.Printf("📤 Uploading %d call logs...", len(calls))

	var metrics models.SyncMetrics
	attempt := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		status, body, err := c.client.PostJSON(reqCtx, url, payload)
		if err != nil {
			return err
		}
		if status != http.StatusOK && status != http.StatusMultiStatus {
			var resp models.SyncResponse
			if json.Unmarshal(body, &resp) == nil && resp.Message != "" {
				return fmt.Errorf("sync rejected with status %d: %s", status, resp.Message)
			}
			return fmt.Errorf("sync failed with status %d", status)
		}
		var resp models.SyncResponse
		_ = json.Unmarshal(body, &resp)
		metrics = resp.Metrics(len(calls))
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newLinearBackOff(c.cfg.BackoffBase, c.cfg.BackoffCap), uint64(c.cfg.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		c.recordFailure()
		log.Printf("❌ Call log sync failed: %v", err)
		return models.SyncResult{}, err
	}

	result := models.SyncResult{
		Synced:     metrics.SyncedCount,
		Duplicates: metrics.DuplicateCount,
		Errors:     metrics.ErrorCount,
	}
	c.recordSuccess(result)
	log.Printf("✅ Synced %d call logs (%d duplicates, %d errors)", result.Synced, result.Duplicates, result.Errors)
	return result, nil
}

func (c *Coordinator) recordSuccess(result models.SyncResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC()
	c.state.LastSyncTime = &now
	c.state.TotalSynced += result.Synced
	c.persistLocked()
	if err := c.settings.Save(storage.KeyLastSync, strconv.FormatInt(now.Unix(), 10)); err != nil {
		log.Printf("⚠️  Failed to persist last sync time: %v", err)
	}
}

func (c *Coordinator) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Failures++
	c.persistLocked()
}

func (c *Coordinator) persistLocked() {
	if err := c.settings.SaveJSON(storage.KeySyncState, c.state); err != nil {
		log.Printf("⚠️  Failed to persist sync state: %v", err)
	}
}

// linearBackOff waits attempt*base between tries, capped.
type linearBackOff struct {
	base    time.Duration
	cap     time.Duration
	attempt int
}

func newLinearBackOff(base, cap time.Duration) *linearBackOff {
	if base <= 0 {
		base = time.Second
	}
	if cap <= 0 {
		cap = 10 * base
	}
	return &linearBackOff{base: base, cap: cap}
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	d := time.Duration(b.attempt) * b.base
	if d > b.cap {
		d = b.cap
	}
	return d
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}
