package backend

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"callsync/models"
	"callsync/storage"
)

// ErrNotFound is returned when no candidate URL answers like our backend.
var ErrNotFound = errors.New("no backend available")

// probeSuffixes are checked in order for every candidate. Each suffix has its
// own expected JSON shape; a match on any one of them identifies the backend.
var probeSuffixes = []string{"", "/devices", "/health"}

// Locator finds this application's backend among an ordered candidate list.
// Candidate order is a deliberate priority (production before development
// fallbacks), so the first match wins and probing stops immediately.
type Locator struct {
	client   *Client
	settings *storage.Settings
	timeout  time.Duration
}

func NewLocator(client *Client, settings *storage.Settings, timeout time.Duration) *Locator {
	return &Locator{client: client, settings: settings, timeout: timeout}
}

// Locate probes candidates in order and returns the first base URL whose
// response matches an expected shape. Non-200s, timeouts, connection errors
// and non-JSON bodies all mean "try next", never a hard failure. The winning
// URL is persisted for the next session.
func (l *Locator) Locate(ctx context.Context, candidates []string) (models.BackendEndpoint, error) {
	log.Printf("🔍 Detecting backend (%d candidates)...", len(candidates))

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return models.BackendEndpoint{}, ctx.Err()
		}
		log.Printf("🔗 Testing: %s", candidate)
		if l.Check(ctx, candidate) {
			endpoint := models.BackendEndpoint{
				BaseURL:      strings.TrimSuffix(candidate, "/"),
				DiscoveredAt: time.Now().UTC(),
			}
			if err := l.settings.Save(storage.KeyAPIURL, endpoint.BaseURL); err != nil {
				log.Printf("⚠️  Failed to persist backend URL: %v", err)
			}
			log.Printf("✅ Backend found: %s", endpoint.BaseURL)
			return endpoint, nil
		}
		log.Printf("❌ Backend not available: %s", candidate)
	}

	return models.BackendEndpoint{}, ErrNotFound
}

// Check probes a single base URL against every suffix and reports whether any
// response identifies our backend. Also used to health-check a cached URL
// before reusing it.
func (l *Locator) Check(ctx context.Context, base string) bool {
	for _, suffix := range probeSuffixes {
		url := JoinURL(base, suffix)
		reqCtx, cancel := context.WithTimeout(ctx, l.timeout)
		status, body, err := l.client.GetJSON(reqCtx, url)
		cancel()
		if err != nil {
			log.Printf("  -> %s: %v", url, err)
			continue
		}
		if status != http.StatusOK {
			log.Printf("  -> %s: %d", url, status)
			continue
		}
		if body == nil {
			continue
		}
		if matchesShape(body, suffix) {
			return true
		}
	}
	return false
}

// matchesShape decides whether a 200 JSON body looks like our API for the
// given probe suffix.
func matchesShape(body map[string]interface{}, suffix string) bool {
	switch suffix {
	case "":
		message, ok := body["message"].(string)
		if !ok {
			return false
		}
		if !strings.Contains(message, "Device") && !strings.Contains(message, "API") {
			return false
		}
		_, hasVersion := body["version"]
		_, hasEndpoints := body["endpoints"]
		return hasVersion || hasEndpoints

	case "/devices":
		_, hasMessage := body["message"]
		_, hasEndpoints := body["endpoints"]
		_, hasVersion := body["version"]
		return hasMessage && hasEndpoints && hasVersion

	case "/health":
		status, ok := body["status"].(string)
		return ok && (status == "healthy" || status == "active")
	}
	return false
}
