package backend

import (
	"fmt"

	"housetrend/internal/config"
)

// FromAppConfig converts the application config to backend config. The
// durable remote config store is enabled for the admin side only.
func FromAppConfig(appConfig *config.Config, admin bool) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:             backendType,
		DataFile:         appConfig.DataFile,
		DownloadDir:      appConfig.DownloadDir,
		Remote:           appConfig.Remote(),
		RemoteConfigFile: appConfig.RemoteConfigFile,
		UseRemoteStore:   admin,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s (valid: %v)", c.Type, GetBackendTypes())
	}

	switch c.Type {
	case LocalBackend:
		if c.DataFile == "" {
			return fmt.Errorf("data file is required for local backend")
		}
		if c.DownloadDir == "" {
			return fmt.Errorf("download directory is required for local backend")
		}
	case MemoryBackend:
		// the data file only seeds the memory store and may be absent
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{LocalBackend, MemoryBackend}
}
