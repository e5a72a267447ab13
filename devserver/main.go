// main.go
// CallSync development backend.
// Speaks the same discovery/registration/sync/heartbeat protocol as the
// hosted deployment, so agents configured with the localhost development
// candidates work against it unchanged.

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"callsync/auth"
	"callsync/config"
	"callsync/db"
	"callsync/handlers"
	"callsync/middleware"
	"callsync/models"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	// Load configuration
	cfg := config.LoadServer()
	cfg.Validate()

	log.Printf("🚀 Starting CallSync dev backend")
	log.Printf("📍 Environment: %s", cfg.Server.Environment)
	log.Printf("🔧 Port: %s", cfg.Server.Port)

	// Initialize store
	ctx := context.Background()
	store, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize store: %v", err)
	}
	defer store.Close()
	log.Printf("💾 Store backend: %s", cfg.Store.Backend)

	// Initialize JWT Manager
	jwtManager := auth.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.Expiration,
		cfg.JWT.RefreshTokenExpiration,
	)
	log.Printf("🔐 JWT Manager initialized (expiration: %v)", cfg.JWT.Expiration)

	// Initialize handlers
	authHandler, err := handlers.NewAuthHandler(cfg.Admin, jwtManager)
	if err != nil {
		log.Fatalf("❌ Failed to initialize auth handler: %v", err)
	}
	deviceHandler := handlers.NewDeviceHandler(store)
	syncHandler := handlers.NewSyncHandler(store)
	adminHandler := handlers.NewAdminHandler(store)
	log.Printf("✅ Handlers initialized")

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	rateLimiter.CleanupOldLimiters()
	log.Printf("🛡️  Rate limiter initialized (%d requests per %v)", cfg.RateLimit.Requests, cfg.RateLimit.Window)

	// Set up router
	mux := http.NewServeMux()

	// Device wire protocol. Agents are configured with base URLs both with
	// and without the /api prefix, so every route is registered under both.
	deviceRoutes := map[string]http.HandlerFunc{
		"/devices":                 deviceHandler.Devices,
		"/health":                  deviceHandler.Health,
		"/devices/register":        deviceHandler.Register,
		"/devices/simple-register": deviceHandler.Register,
		"/devices/ping":            deviceHandler.Ping,
		"/calls/sync":              syncHandler.HandleSync,
	}
	for path, handlerFunc := range deviceRoutes {
		mux.HandleFunc(path, handlerFunc)
		mux.HandleFunc("/api"+path, handlerFunc)
	}
	// Root discovery, including /api and /api/
	mux.HandleFunc("/", deviceHandler.Root)
	mux.HandleFunc("/api", deviceHandler.Root)
	mux.HandleFunc("/api/", deviceHandler.Root)

	// Admin API (authentication required)
	mux.HandleFunc("/api/login", authHandler.Login)
	mux.HandleFunc("/api/refresh", authHandler.RefreshToken)

	authMiddleware := middleware.AuthMiddleware(jwtManager)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	mux.Handle("/api/admin/devices", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.GetDevices))))
	mux.Handle("/api/admin/calls", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.GetCalls))))
	mux.Handle("/api/admin/export", authMiddleware(adminOnly(http.HandlerFunc(adminHandler.ExportCSV))))

	// Apply global middleware
	handler := middleware.CORSMiddleware(cfg.CORS.AllowedOrigins)(mux)
	handler = rateLimiter.Middleware()(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("✅ Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}

func newStore(ctx context.Context, cfg *config.ServerConfig) (db.Store, error) {
	switch cfg.Store.Backend {
	case "firestore":
		return db.NewFirestoreStore(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
	default:
		return db.NewMemoryStore(), nil
	}
}
