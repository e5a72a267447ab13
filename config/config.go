package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// AppName and AppVersion identify the agent on the wire (User-Agent and
// registration payload).
const (
	AppName    = "CallSync"
	AppVersion = "2.0.0"
)

// Config holds all agent configuration
type Config struct {
	Environment string
	API         APIConfig
	Sync        SyncConfig
	Heartbeat   HeartbeatConfig
	CallLog     CallLogConfig
	StorageDir  string
	UserID      string // optional externally supplied user id
}

type APIConfig struct {
	ProductionURLs   []string
	DevelopmentURLs  []string
	ConnectivityURLs []string
	ProbeTimeout     time.Duration // connectivity + discovery probes
	RequestTimeout   time.Duration // registration / heartbeat
	SyncTimeout      time.Duration // sync uploads carry the heaviest payloads
}

type SyncConfig struct {
	Interval    time.Duration
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	BatchLimit  int
}

type HeartbeatConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

type CallLogConfig struct {
	Source     string // "sample" or "file"
	FilePath   string
	FetchLimit int
}

// Load reads agent configuration from environment variables
func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		API: APIConfig{
			ProductionURLs: parseStringSlice(getEnv("API_URLS",
				"https://callsync.onrender.com/api")),
			DevelopmentURLs: parseStringSlice(getEnv("DEV_API_URLS",
				"http://localhost:5001/api,http://127.0.0.1:5001/api")),
			ConnectivityURLs: parseStringSlice(getEnv("CONNECTIVITY_TEST_URLS",
				"https://httpbin.org/get,https://jsonplaceholder.typicode.com/posts/1,https://www.google.com,https://callsync.onrender.com")),
			ProbeTimeout:   parseDuration(getEnv("PROBE_TIMEOUT", "10s"), 10*time.Second),
			RequestTimeout: parseDuration(getEnv("REQUEST_TIMEOUT", "15s"), 15*time.Second),
			SyncTimeout:    parseDuration(getEnv("SYNC_TIMEOUT", "30s"), 30*time.Second),
		},
		Sync: SyncConfig{
			Interval:    parseDuration(getEnv("SYNC_INTERVAL", "5m"), 5*time.Minute),
			MaxAttempts: parseInt(getEnv("SYNC_MAX_ATTEMPTS", "3"), 3),
			BackoffBase: parseDuration(getEnv("SYNC_BACKOFF_BASE", "2s"), 2*time.Second),
			BackoffCap:  parseDuration(getEnv("SYNC_BACKOFF_CAP", "10s"), 10*time.Second),
			BatchLimit:  parseInt(getEnv("SYNC_BATCH_LIMIT", "100"), 100),
		},
		Heartbeat: HeartbeatConfig{
			Interval:    parseDuration(getEnv("HEARTBEAT_INTERVAL", "2m"), 2*time.Minute),
			MaxAttempts: parseInt(getEnv("HEARTBEAT_MAX_ATTEMPTS", "2"), 2),
		},
		CallLog: CallLogConfig{
			Source:     getEnv("CALL_LOG_SOURCE", "sample"),
			FilePath:   getEnv("CALL_LOG_FILE", ""),
			FetchLimit: parseInt(getEnv("CALL_LOG_LIMIT", "100"), 100),
		},
		StorageDir: getEnv("STORAGE_DIR", defaultStorageDir()),
		UserID:     getEnv("USER_ID", ""),
	}
}

// CandidateURLs returns backend candidates in priority order: production
// first, development fallbacks only in development environments.
func (c *Config) CandidateURLs() []string {
	urls := append([]string{}, c.API.ProductionURLs...)
	if c.IsDevelopment() {
		urls = append(urls, c.API.DevelopmentURLs...)
	}
	return urls
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) Validate() {
	if len(c.API.ProductionURLs) == 0 && len(c.CandidateURLs()) == 0 {
		log.Fatal("API_URLS must contain at least one backend candidate")
	}
	if c.Sync.BatchLimit < 20 {
		c.Sync.BatchLimit = 20
	}
	if c.Sync.BatchLimit > 1000 {
		c.Sync.BatchLimit = 1000
	}
	if c.Sync.MaxAttempts < 1 {
		c.Sync.MaxAttempts = 1
	}
	if c.Heartbeat.MaxAttempts < 1 {
		c.Heartbeat.MaxAttempts = 1
	}
	if c.CallLog.Source == "file" && c.CallLog.FilePath == "" {
		log.Fatal("CALL_LOG_FILE must be set when CALL_LOG_SOURCE=file")
	}
}

func defaultStorageDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".callsync"
	}
	return home + string(os.PathSeparator) + ".callsync"
}

// --- Dev backend configuration ---

// ServerConfig holds all dev backend configuration
type ServerConfig struct {
	Server    ServerListenConfig
	JWT       JWTConfig
	Admin     AdminConfig
	Store     StoreConfig
	Firebase  FirebaseConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type ServerListenConfig struct {
	Port        string
	Host        string
	Environment string
}

type JWTConfig struct {
	Secret                 string
	Expiration             time.Duration
	RefreshTokenExpiration time.Duration
}

type AdminConfig struct {
	Username string
	Password string
}

type StoreConfig struct {
	Backend string // "memory" or "firestore"
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsPath string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LoadServer reads dev backend configuration from environment variables
func LoadServer() *ServerConfig {
	return &ServerConfig{
		Server: ServerListenConfig{
			Port:        getEnv("PORT", "5001"),
			Host:        getEnv("HOST", "0.0.0.0"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		JWT: JWTConfig{
			Secret:                 getEnv("JWT_SECRET", "dev-secret-key"),
			Expiration:             parseDuration(getEnv("JWT_EXPIRATION", "30m"), 30*time.Minute),
			RefreshTokenExpiration: parseDuration(getEnv("REFRESH_TOKEN_EXPIRATION", "168h"), 7*24*time.Hour),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Password: getEnv("ADMIN_PASSWORD", "callsync-dev1"),
		},
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "memory"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./serviceAccountKey.json"),
		},
		RateLimit: RateLimitConfig{
			Requests: parseInt(getEnv("RATE_LIMIT_REQUESTS", "100"), 100),
			Window:   parseDuration(getEnv("RATE_LIMIT_WINDOW", "60"), 60*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		},
	}
}

func (c *ServerConfig) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *ServerConfig) Validate() {
	if c.JWT.Secret == "dev-secret-key" && c.IsProduction() {
		log.Fatal("JWT_SECRET must be set in production")
	}
	if c.Store.Backend != "memory" && c.Store.Backend != "firestore" {
		log.Fatalf("Unknown STORE_BACKEND: %s", c.Store.Backend)
	}
	if c.Store.Backend == "firestore" {
		if c.Firebase.ProjectID == "" {
			log.Fatal("FIREBASE_PROJECT_ID must be set when STORE_BACKEND=firestore")
		}
		if _, err := os.Stat(c.Firebase.CredentialsPath); os.IsNotExist(err) {
			log.Fatalf("Firebase credentials file not found: %s", c.Firebase.CredentialsPath)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	// Handle simple formats like "30m", "7d", "60"
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	// If it's just a number, assume seconds
	if i, err := strconv.Atoi(s); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}

func parseStringSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	result := []string{}
	for i := 0; i < len(s); {
		end := i
		for end < len(s) && s[end] != ',' {
			end++
		}
		if i < end {
			result = append(result, s[i:end])
		}
		i = end + 1
	}
	return result
}
