package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/evetools/indy/internal/platform/logger"
)

// File mirrors the optional YAML config file. Every field has an env
// counterpart; the file only supplies defaults and the environment wins.
type File struct {
	AppAddress     string `yaml:"app_address"`
	ServiceAddress string `yaml:"service_address"`
	DatabaseURL    string `yaml:"database_url"`
	GatewayAddress string `yaml:"gateway_address"`
	SyncRegions    string `yaml:"sync_regions"`
	LogMode        string `yaml:"log_mode"`
}

// Apply loads the file named by CONFIG_FILE, if any, and exports each value
// into the environment unless the variable is already set. Callers then read
// configuration through the env helpers as usual.
func Apply(log *logger.Logger) error {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return err
	}
	defaults := map[string]string{
		"APP_ADDRESS":     f.AppAddress,
		"SERVICE_ADDRESS": f.ServiceAddress,
		"DATABASE_URL":    f.DatabaseURL,
		"GATEWAY_ADDRESS": f.GatewayAddress,
		"SYNC_REGIONS":    f.SyncRegions,
		"LOG_MODE":        f.LogMode,
	}
	for key, value := range defaults {
		if value == "" {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
		log.Debug("config file default applied", "key", key)
	}
	return nil
}
