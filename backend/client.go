// Package backend implements the HTTP client side of the CallSync wire
// protocol: connectivity probing, backend discovery, device registration and
// heartbeats.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"callsync/config"
)

// maxResponseBytes bounds how much of a response body is read. Discovery
// probes hit arbitrary public URLs; none of our payloads come close.
const maxResponseBytes = 1 << 20

// Client is the shared HTTP client for all backend operations. Per-operation
// deadlines come from the caller's context; the transport timeout is only a
// hard upper bound.
type Client struct {
	http      *http.Client
	userAgent string
}

// NewClient builds a client with the agent's User-Agent.
func NewClient() *Client {
	return &Client{
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
		userAgent: fmt.Sprintf("%s/%s (%s)", config.AppName, config.AppVersion, runtime.GOOS),
	}
}

// GetJSON issues a GET and decodes a JSON object body. body is nil when the
// response is not a JSON object; err is non-nil only for transport failures.
func (c *Client) GetJSON(ctx context.Context, url string) (status int, body map[string]interface{}, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, nil
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return resp.StatusCode, nil, nil
	}
	return resp.StatusCode, decoded, nil
}

// PostJSON issues a POST with a JSON body and returns the raw response body.
// err is non-nil only for transport failures; callers interpret status and
// body per operation.
func (c *Client) PostJSON(ctx context.Context, url string, payload interface{}) (status int, body []byte, err error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	return resp.StatusCode, raw, nil
}

// JoinURL appends a path suffix to a base URL. An empty suffix returns the
// base unchanged.
func JoinURL(base, suffix string) string {
	base = strings.TrimSuffix(base, "/")
	if suffix == "" {
		return base
	}
	return base + "/" + strings.TrimPrefix(suffix, "/")
}
