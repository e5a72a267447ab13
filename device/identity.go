// Package device derives and persists the stable device identity the agent
// registers with.
package device

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/google/uuid"

	"callsync/config"
	"callsync/models"
	"callsync/storage"
)

// Identity is the stable device identifier plus the device-info record sent
// at registration. Immutable for the process lifetime once loaded.
type Identity struct {
	DeviceID string
	UserID   string
	Info     models.DeviceInfo
}

// Info describes the running host. The platform call-log build fills this
// from the OS bindings; on desktop it is derived from the Go runtime.
func Info() models.DeviceInfo {
	host, _ := os.Hostname()
	info := models.DeviceInfo{
		Model:      host,
		AppVersion: config.AppVersion,
		Platform:   runtime.GOOS,
		OSVersion:  runtime.Version(),
	}
	switch runtime.GOOS {
	case "windows":
		info.OS = "Windows"
		info.Manufacturer = "Microsoft"
	case "darwin":
		info.OS = "macOS"
		info.Manufacturer = "Apple"
	case "linux":
		info.OS = "Linux"
		info.Manufacturer = "Linux"
	case "android":
		info.OS = "Android"
		info.Manufacturer = "Unknown"
	default:
		info.OS = runtime.GOOS
		info.Manufacturer = "Unknown"
	}
	if info.Model == "" {
		info.Model = info.OS + " Device"
	}
	return info
}

// LoadOrCreate returns the persisted identity, generating and saving a new
// one on first run. configuredUserID (from the environment) wins over any
// stored value.
func LoadOrCreate(settings *storage.Settings, configuredUserID string) (*Identity, error) {
	info := Info()

	deviceID, ok := settings.Load(storage.KeyDeviceID)
	if !ok || deviceID == "" {
		deviceID = generateDeviceID(info)
		if err := settings.Save(storage.KeyDeviceID, deviceID); err != nil {
			return nil, err
		}
		log.Printf("📱 Generated new device ID: %s", deviceID)
	}

	userID := configuredUserID
	if userID == "" {
		userID, _ = settings.Load(storage.KeyUserID)
	}
	if userID == "" {
		userID = deriveUserID(info)
	}
	if err := settings.Save(storage.KeyUserID, userID); err != nil {
		return nil, err
	}

	return &Identity{DeviceID: deviceID, UserID: userID, Info: info}, nil
}

// generateDeviceID builds "<platform>_<hex16>" from the device fingerprint
// plus a random component, so two identical hosts never collide. The result
// is persisted once and reused forever.
func generateDeviceID(info models.DeviceInfo) string {
	seed := fmt.Sprintf("%s_%s_%s_%s", info.Platform, info.Model, info.Manufacturer, uuid.NewString())
	sum := md5.Sum([]byte(seed))
	return fmt.Sprintf("%s_%s", info.Platform, hex.EncodeToString(sum[:])[:16])
}

// deriveUserID is the fallback pseudo-identifier used when no user id was
// supplied externally: a stable 12-hex digest of the device fingerprint.
func deriveUserID(info models.DeviceInfo) string {
	seed := fmt.Sprintf("%s_%s_%s", info.Platform, info.Model, info.Manufacturer)
	sum := md5.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])[:12]
}
