// Package calllog supplies call log records to the sync coordinator. The
// real platform call-log API and the sample generator sit behind the same
// Source interface, selected once at startup via configuration.
package calllog

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"callsync/config"
	"callsync/models"
)

// Source yields the most recent call log entries, newest first, capped at
// limit.
type Source interface {
	Calls(ctx context.Context, limit int) ([]models.CallLogEntry, error)
}

// CallID derives the deterministic entry id used for backend deduplication.
// Resending the same call from the same device always produces the same id.
func CallID(deviceID, phoneNumber, timestamp string) string {
	sum := md5.Sum([]byte(deviceID + "_" + phoneNumber + "_" + timestamp))
	return hex.EncodeToString(sum[:])[:16]
}

// ForConfig builds the configured source.
func ForConfig(cfg config.CallLogConfig, deviceID string) (Source, error) {
	switch cfg.Source {
	case "sample", "":
		return NewSampleSource(deviceID), nil
	case "file":
		return NewFileSource(cfg.FilePath, deviceID), nil
	default:
		return nil, fmt.Errorf("unknown call log source: %s", cfg.Source)
	}
}
