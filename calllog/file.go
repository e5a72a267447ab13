package calllog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"callsync/models"
)

// FileSource reads call records from a JSON file (an export produced on the
// device). Entries missing a call id get the deterministic derived one, and
// unrecognized call types collapse to "unknown".
type FileSource struct {
	path     string
	deviceID string
}

func NewFileSource(path, deviceID string) *FileSource {
	return &FileSource{path: path, deviceID: deviceID}
}

func (f *FileSource) Calls(_ context.Context, limit int) ([]models.CallLogEntry, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read call log file: %w", err)
	}

	var entries []models.CallLogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse call log file: %w", err)
	}

	for i := range entries {
		entries[i].CallType = models.ParseCallType(string(entries[i].CallType))
		if entries[i].CallID == "" {
			entries[i].CallID = CallID(f.deviceID, entries[i].PhoneNumber, entries[i].Timestamp)
		}
	}

	// Newest first, so the batch cap keeps the most recent calls.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})

	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
