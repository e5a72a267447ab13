// Package storage is the persistent key/value settings store backing the
// agent. Each key is one file under the storage directory; writes go through
// a temp file and rename so a reader never observes a partial value.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Keys used by the agent.
const (
	KeyDeviceID         = "device_id"
	KeyUserID           = "user_id"
	KeyAPIURL           = "api_url"
	KeyDeviceRegistered = "device_registered"
	KeyLastRegistration = "last_registration"
	KeyLastSync         = "last_sync"
	KeySyncState        = "sync_state"
)

// Settings is a file-per-key store rooted at a single directory.
type Settings struct {
	dir string
}

// NewSettings creates the storage directory if needed.
func NewSettings(dir string) (*Settings, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &Settings{dir: dir}, nil
}

// Dir returns the storage directory path.
func (s *Settings) Dir() string {
	return s.dir
}

func (s *Settings) path(key string) string {
	return filepath.Join(s.dir, key+".txt")
}

// Save writes a string value for key. Per-key writes are atomic;
// last-writer-wins across workers.
func (s *Settings) Save(key, value string) error {
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Load reads the string value for key. The second return is false when the
// key has never been saved.
func (s *Settings) Load(key string) (string, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// Delete removes a key. Missing keys are not an error.
func (s *Settings) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// SaveJSON marshals v and stores it under key.
func (s *Settings) SaveJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.Save(key, string(data))
}

// LoadJSON unmarshals the value stored under key into v. The first return is
// false when the key has never been saved.
func (s *Settings) LoadJSON(key string, v interface{}) (bool, error) {
	raw, ok := s.Load(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return true, nil
}
