// Package agent owns the process-level session state and the periodic
// workers. All backend components receive the session explicitly; there are
// no ambient globals.
package agent

import (
	"context"
	"fmt"
	"log"
	"sync"

	"callsync/backend"
	"callsync/calllog"
	"callsync/config"
	"callsync/device"
	"callsync/models"
	"callsync/storage"
	"callsync/synclog"
)

// Session wires identity, settings and the backend components together and
// tracks the discovered endpoint and registration record.
type Session struct {
	cfg      *config.Config
	settings *storage.Settings
	identity *device.Identity
	source   calllog.Source

	prober    *backend.Prober
	locator   *backend.Locator
	registrar *backend.Registrar
	heartbeat *backend.HeartbeatSender
	sync      *synclog.Coordinator

	mu           sync.Mutex
	endpoint     models.BackendEndpoint
	registration models.RegistrationRecord
}

// NewSession loads persisted identity and builds all components.
func NewSession(cfg *config.Config) (*Session, error) {
	settings, err := storage.NewSettings(cfg.StorageDir)
	if err != nil {
		return nil, err
	}
	identity, err := device.LoadOrCreate(settings, cfg.UserID)
	if err != nil {
		return nil, err
	}
	source, err := calllog.ForConfig(cfg.CallLog, identity.DeviceID)
	if err != nil {
		return nil, err
	}

	client := backend.NewClient()
	return &Session{
		cfg:       cfg,
		settings:  settings,
		identity:  identity,
		source:    source,
		prober:    backend.NewProber(client, cfg.API.ProbeTimeout),
		locator:   backend.NewLocator(client, settings, cfg.API.ProbeTimeout),
		registrar: backend.NewRegistrar(client, settings, cfg.API.RequestTimeout),
		heartbeat: backend.NewHeartbeatSender(client, cfg.API.RequestTimeout, cfg.Heartbeat.MaxAttempts),
		sync:      synclog.NewCoordinator(client, settings, cfg.Sync, cfg.API.SyncTimeout),
	}, nil
}

// Identity returns the session's device identity.
func (s *Session) Identity() *device.Identity {
	return s.identity
}

// Endpoint returns the currently known backend endpoint.
func (s *Session) Endpoint() models.BackendEndpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

func (s *Session) DeviceID() string { return s.identity.DeviceID }
func (s *Session) UserID() string   { return s.identity.UserID }

// Registered reports whether the registration handshake has completed.
func (s *Session) Registered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registration.Registered
}

// EnsureRegistered runs the registration handshake against the current
// endpoint if it has not completed yet.
func (s *Session) EnsureRegistered(ctx context.Context) error {
	s.mu.Lock()
	if s.registration.Registered {
		s.mu.Unlock()
		return nil
	}
	endpoint := s.endpoint
	s.mu.Unlock()

	if endpoint.BaseURL == "" {
		return fmt.Errorf("no backend endpoint discovered")
	}

	record, err := s.registrar.Register(ctx, endpoint, s.identity.DeviceID, s.identity.UserID, s.identity.Info)
	s.mu.Lock()
	s.registration = record
	s.mu.Unlock()
	return err
}

// Initialize brings the session to a registered state: reuse a healthy saved
// backend when possible, otherwise gate on connectivity, locate a backend and
// register. Sync and heartbeat must not run until this succeeds.
func (s *Session) Initialize(ctx context.Context) error {
	if s.reuseSaved(ctx) {
		return nil
	}

	ratio := s.prober.Probe(ctx, s.cfg.API.ConnectivityURLs)
	if ratio < backend.ConnectedThreshold {
		return fmt.Errorf("no internet connectivity (%.0f%% of probes succeeded)", ratio*100)
	}
	log.Printf("✅ Internet connectivity confirmed")

	endpoint, err := s.locator.Locate(ctx, s.cfg.CandidateURLs())
	if err != nil {
		return fmt.Errorf("backend detection failed: %w", err)
	}

	s.mu.Lock()
	s.endpoint = endpoint
	s.registration = models.RegistrationRecord{}
	s.mu.Unlock()

	if err := s.EnsureRegistered(ctx); err != nil {
		return err
	}
	log.Printf("🎉 Device registered and ready")
	return nil
}

// reuseSaved restores a previous session when the cached backend still
// answers its health probe and the device still pings successfully.
func (s *Session) reuseSaved(ctx context.Context) bool {
	apiURL, ok := s.settings.Load(storage.KeyAPIURL)
	if !ok || apiURL == "" {
		return false
	}
	if registered, _ := s.settings.Load(storage.KeyDeviceRegistered); registered != "true" {
		return false
	}

	log.Printf("📱 Using saved configuration: %s", apiURL)
	if !s.locator.Check(ctx, apiURL) {
		log.Printf("⚠️  Saved backend not available, detecting new backend...")
		return false
	}

	endpoint := models.BackendEndpoint{BaseURL: apiURL}
	if !s.heartbeat.Heartbeat(ctx, endpoint, s.identity.DeviceID) {
		log.Printf("⚠️  Device ping failed, re-registering...")
		s.mu.Lock()
		s.endpoint = endpoint
		s.registration = models.RegistrationRecord{}
		s.mu.Unlock()
		return false
	}

	s.mu.Lock()
	s.endpoint = endpoint
	s.registration = models.RegistrationRecord{
		DeviceID:   s.identity.DeviceID,
		UserID:     s.identity.UserID,
		Registered: true,
	}
	s.mu.Unlock()
	log.Printf("✅ Device still connected")
	return true
}

// SyncOnce fetches the most recent call records and uploads them.
func (s *Session) SyncOnce(ctx context.Context) (models.SyncResult, error) {
	calls, err := s.source.Calls(ctx, s.cfg.CallLog.FetchLimit)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("failed to read call logs: %w", err)
	}
	return s.sync.Sync(ctx, s, calls)
}

// HeartbeatOnce sends a liveness ping, registering first if needed.
func (s *Session) HeartbeatOnce(ctx context.Context) bool {
	if !s.Registered() {
		if err := s.EnsureRegistered(ctx); err != nil {
			log.Printf("❌ Heartbeat skipped, device not registered: %v", err)
			return false
		}
	}
	return s.heartbeat.Heartbeat(ctx, s.Endpoint(), s.identity.DeviceID)
}

// SyncState returns the persisted sync bookkeeping.
func (s *Session) SyncState() models.SyncState {
	return s.sync.State()
}
