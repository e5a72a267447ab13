package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCandidateURLOrdering(t *testing.T) {
	cfg := &Config{
		Environment: "development",
		API: APIConfig{
			ProductionURLs:  []string{"https://prod.example.com/api"},
			DevelopmentURLs: []string{"http://localhost:5001/api"},
		},
	}

	// Development appends local fallbacks after production candidates
	assert.Equal(t, []string{"https://prod.example.com/api", "http://localhost:5001/api"}, cfg.CandidateURLs())

	cfg.Environment = "production"
	assert.Equal(t, []string{"https://prod.example.com/api"}, cfg.CandidateURLs())
}

func TestValidateClampsBatchLimit(t *testing.T) {
	cfg := &Config{
		API:       APIConfig{ProductionURLs: []string{"https://prod.example.com/api"}},
		Sync:      SyncConfig{BatchLimit: 5, MaxAttempts: 3},
		Heartbeat: HeartbeatConfig{MaxAttempts: 2},
	}
	cfg.Validate()
	assert.Equal(t, 20, cfg.Sync.BatchLimit)

	cfg.Sync.BatchLimit = 5000
	cfg.Validate()
	assert.Equal(t, 1000, cfg.Sync.BatchLimit)

	cfg.Sync.BatchLimit = 100
	cfg.Validate()
	assert.Equal(t, 100, cfg.Sync.BatchLimit)
}

func TestValidateClampsAttempts(t *testing.T) {
	cfg := &Config{
		API:       APIConfig{ProductionURLs: []string{"https://prod.example.com/api"}},
		Sync:      SyncConfig{BatchLimit: 100, MaxAttempts: 0},
		Heartbeat: HeartbeatConfig{MaxAttempts: -1},
	}
	cfg.Validate()
	assert.Equal(t, 1, cfg.Sync.MaxAttempts)
	assert.Equal(t, 1, cfg.Heartbeat.MaxAttempts)
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, 30*time.Minute, parseDuration("30m", time.Second))
	assert.Equal(t, 60*time.Second, parseDuration("60", time.Second))
	assert.Equal(t, time.Second, parseDuration("bogus", time.Second))

	assert.Equal(t, 42, parseInt("42", 7))
	assert.Equal(t, 7, parseInt("x", 7))

	assert.Equal(t, []string{"a", "b"}, parseStringSlice("a,b"))
	assert.Equal(t, []string{"a"}, parseStringSlice("a,"))
	assert.Empty(t, parseStringSlice(""))
}
