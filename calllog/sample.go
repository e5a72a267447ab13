package calllog

import (
	"context"
	"fmt"
	"time"

	"callsync/models"
)

// sampleBatchSize caps how many generated records one fetch returns.
const sampleBatchSize = 20

var sampleTypes = []models.CallType{
	models.CallIncoming,
	models.CallOutgoing,
	models.CallMissed,
}

// SampleSource generates plausible call records for environments without a
// real call log (desktop testing). Records are stable within a day so
// repeated fetches resend the same ids and exercise backend deduplication.
type SampleSource struct {
	deviceID string
	now      func() time.Time
}

func NewSampleSource(deviceID string) *SampleSource {
	return &SampleSource{deviceID: deviceID, now: time.Now}
}

func (s *SampleSource) Calls(_ context.Context, limit int) ([]models.CallLogEntry, error) {
	if limit > sampleBatchSize {
		limit = sampleBatchSize
	}
	if limit < 0 {
		limit = 0
	}

	base := s.now().UTC().Truncate(24 * time.Hour)
	entries := make([]models.CallLogEntry, 0, limit)
	for i := 0; i < limit; i++ {
		ts := base.Add(-time.Duration(i) * 90 * time.Minute).Format(time.RFC3339)
		number := fmt.Sprintf("+1555000%04d", i)
		entries = append(entries, models.CallLogEntry{
			PhoneNumber:     number,
			ContactName:     fmt.Sprintf("Contact %d", i),
			CallType:        sampleTypes[i%len(sampleTypes)],
			DurationSeconds: (i * 37) % 600,
			Timestamp:       ts,
			CallID:          CallID(s.deviceID, number, ts),
		})
	}
	return entries, nil
}
