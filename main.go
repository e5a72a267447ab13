// main.go
// CallSync agent - reads the device call log and uploads it to the backend.
// Discovers the backend, registers the device, then runs periodic sync and
// heartbeat workers until interrupted.

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"callsync/agent"
	"callsync/config"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	// Load configuration
	cfg := config.Load()
	cfg.Validate()

	log.Printf("🚀 Starting %s agent v%s", config.AppName, config.AppVersion)
	log.Printf("📍 Environment: %s", cfg.Environment)
	log.Printf("🔧 Call log source: %s", cfg.CallLog.Source)

	sess, err := agent.NewSession(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to build session: %v", err)
	}
	log.Printf("📱 Device ID: %s", sess.DeviceID())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Discovery and registration must complete before any worker runs.
	if err := sess.Initialize(ctx); err != nil {
		log.Fatalf("❌ Initialization failed: %v", err)
	}

	scheduler := agent.NewScheduler(5*time.Second,
		agent.Task{
			Name:     "sync",
			Interval: cfg.Sync.Interval,
			Run: func(ctx context.Context) {
				if _, err := sess.SyncOnce(ctx); err != nil && ctx.Err() == nil {
					log.Printf("❌ Sync worker: %v", err)
				}
			},
		},
		agent.Task{
			Name:     "heartbeat",
			Interval: cfg.Heartbeat.Interval,
			Run: func(ctx context.Context) {
				sess.HeartbeatOnce(ctx)
			},
		},
	)
	scheduler.Start(ctx)
	log.Printf("✅ Monitoring started")

	<-ctx.Done()
	log.Println("🛑 Stopping monitoring...")
	scheduler.Stop()

	state := sess.SyncState()
	log.Printf("✅ Agent stopped (total synced: %d, failures: %d)", state.TotalSynced, state.Failures)
}
