// models.go
// Defines the core data structures shared by the CallSync agent and the dev backend.

package models

import (
	"time"
)

// CallType categorizes a call log entry.
type CallType string

const (
	CallIncoming  CallType = "incoming"
	CallOutgoing  CallType = "outgoing"
	CallMissed    CallType = "missed"
	CallVoicemail CallType = "voicemail"
	CallRejected  CallType = "rejected"
	CallBlocked   CallType = "blocked"
	CallUnknown   CallType = "unknown"
)

// ParseCallType normalizes a raw call type string to a known CallType.
func ParseCallType(s string) CallType {
	switch CallType(s) {
	case CallIncoming, CallOutgoing, CallMissed, CallVoicemail, CallRejected, CallBlocked:
		return CallType(s)
	default:
		return CallUnknown
	}
}

// CallLogEntry is a single call record as it travels over the wire.
// CallID is deterministic (derived from device ID, number and timestamp) so
// the backend can deduplicate resent batches.
type CallLogEntry struct {
	PhoneNumber     string   `json:"phoneNumber" firestore:"phone_number"`
	ContactName     string   `json:"contactName,omitempty" firestore:"contact_name"`
	CallType        CallType `json:"callType" firestore:"call_type"`
	DurationSeconds int      `json:"durationSeconds" firestore:"duration_seconds"`
	Timestamp       string   `json:"timestamp" firestore:"timestamp"` // ISO-8601 / RFC3339
	CallID          string   `json:"callId" firestore:"call_id"`
}

// DeviceInfo describes the device the agent runs on. It is sent once at
// registration time.
type DeviceInfo struct {
	Model        string `json:"model" firestore:"model"`
	Manufacturer string `json:"manufacturer" firestore:"manufacturer"`
	OS           string `json:"os" firestore:"os"`
	OSVersion    string `json:"osVersion" firestore:"os_version"`
	AppVersion   string `json:"appVersion" firestore:"app_version"`
	Platform     string `json:"platform" firestore:"platform"`
}

// Permissions are the capability flags reported during registration.
type Permissions struct {
	ReadCallLog    bool `json:"readCallLog" firestore:"read_call_log"`
	ReadPhoneState bool `json:"readPhoneState" firestore:"read_phone_state"`
	ReadContacts   bool `json:"readContacts" firestore:"read_contacts"`
}

// DefaultPermissions returns the capability flags the agent always reports.
func DefaultPermissions() Permissions {
	return Permissions{ReadCallLog: true, ReadPhoneState: true, ReadContacts: true}
}

// BackendEndpoint is a located backend base URL.
type BackendEndpoint struct {
	BaseURL      string    `json:"base_url"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// RegistrationRecord is the local record of a registration handshake.
// Registered=true implies a non-empty DeviceID and a persisted backend URL.
type RegistrationRecord struct {
	DeviceID     string    `json:"device_id"`
	UserID       string    `json:"user_id"`
	Registered   bool      `json:"registered"`
	RegisteredAt time.Time `json:"registered_at"`
}

// SyncState is the persisted sync bookkeeping. Mutated only by the sync
// coordinator after each sync attempt.
type SyncState struct {
	LastSyncTime *time.Time `json:"last_sync_time"`
	TotalSynced  int        `json:"total_synced"`
	Failures     int        `json:"failures"`
}

// SyncResult summarizes one sync call. Counts come from the backend, which is
// the deduplication authority.
type SyncResult struct {
	Synced     int `json:"synced"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

// --- Wire payloads ---

// RegistrationRequest is the body POSTed to /devices/register.
type RegistrationRequest struct {
	DeviceID    string      `json:"deviceId"`
	UserID      string      `json:"userId"`
	DeviceInfo  DeviceInfo  `json:"deviceInfo"`
	Permissions Permissions `json:"permissions"`
}

// RegistrationResponse is the backend's answer to a registration attempt.
type RegistrationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// SyncRequest is the body POSTed to /calls/sync.
type SyncRequest struct {
	DeviceID string         `json:"deviceId"`
	UserID   string         `json:"userId"`
	Calls    []CallLogEntry `json:"calls"`
}

// SyncMetrics is the per-batch accounting returned by the backend.
type SyncMetrics struct {
	SyncedCount    int `json:"syncedCount"`
	DuplicateCount int `json:"duplicateCount"`
	ErrorCount     int `json:"errorCount"`
}

// SyncResponse is the backend's answer to a sync push. Some backend variants
// nest the metrics, others report them top-level; both are accepted.
type SyncResponse struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message,omitempty"`
	SyncMetrics *SyncMetrics `json:"syncMetrics,omitempty"`

	// Top-level fallbacks used by older backend variants.
	SyncedCount    *int `json:"syncedCount,omitempty"`
	DuplicateCount *int `json:"duplicateCount,omitempty"`
	ErrorCount     *int `json:"errorCount,omitempty"`
}

// Metrics resolves the sync accounting regardless of where the backend put it.
// When the backend reported nothing, synced defaults to the batch size.
func (r *SyncResponse) Metrics(batchSize int) SyncMetrics {
	if r.SyncMetrics != nil {
		return *r.SyncMetrics
	}
	if r.SyncedCount != nil {
		m := SyncMetrics{SyncedCount: *r.SyncedCount}
		if r.DuplicateCount != nil {
			m.DuplicateCount = *r.DuplicateCount
		}
		if r.ErrorCount != nil {
			m.ErrorCount = *r.ErrorCount
		}
		return m
	}
	return SyncMetrics{SyncedCount: batchSize}
}

// HeartbeatRequest is the body POSTed to /devices/ping.
type HeartbeatRequest struct {
	DeviceID  string `json:"deviceId"`
	Timestamp int64  `json:"timestamp"`
	Status    string `json:"status"`
}

// --- Dev backend records ---

// Device is a registered device as stored by the backend.
type Device struct {
	DeviceID     string      `json:"deviceId" firestore:"device_id"`
	UserID       string      `json:"userId" firestore:"user_id"`
	DeviceInfo   DeviceInfo  `json:"deviceInfo" firestore:"device_info"`
	Permissions  Permissions `json:"permissions" firestore:"permissions"`
	RegisteredAt time.Time   `json:"registeredAt" firestore:"registered_at"`
	LastSeen     time.Time   `json:"lastSeen" firestore:"last_seen"`
}

// StoredCall is a synced call record as stored by the backend.
type StoredCall struct {
	DeviceID   string       `json:"deviceId" firestore:"device_id"`
	UserID     string       `json:"userId" firestore:"user_id"`
	Call       CallLogEntry `json:"call" firestore:"call"`
	ReceivedAt time.Time    `json:"receivedAt" firestore:"received_at"`
}

// AdminRole defines the access level of a dev backend admin user.
type AdminRole string

const (
	RoleAdmin  AdminRole = "ADMIN"
	RoleViewer AdminRole = "VIEWER"
)
