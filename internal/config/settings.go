package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"intelfeed/internal/support"
)

// Config is the runtime settings snapshot consumed by the fetcher, scheduler
// and export generator. It is loaded from a JSON file and swapped atomically,
// so callers always see a consistent view and tests can inject deterministic
// values through SetConfig.
type Config struct {
	System struct {
		// DefaultFetchInterval is applied to new data sources that do not
		// set their own polling period (seconds).
		DefaultFetchInterval uint32 `json:"default_fetch_interval"`

		// MaxFileSize caps the line count of a single blacklist export file.
		MaxFileSize int `json:"max_file_size"`

		// BlacklistUpdateTimer drives the periodic export regeneration.
		BlacklistUpdateTimer Timer `json:"blacklist_update_timer"`

		// EnableSoarURL turns on the custom soar-url indicator type.
		EnableSoarURL bool `json:"enable_soar_url"`
	} `json:"system"`

	Fetcher struct {
		Timeout uint32 `json:"timeout_seconds"`
	} `json:"fetcher"`

	Proxy ProxyConfig `json:"proxy"`

	ProxyFormat struct {
		DomainCategory string `json:"domain_category"`
		URLCategory    string `json:"url_category"`
	} `json:"proxy_format"`
}

// ProxyConfig describes the optional upstream proxy used for feed fetches.
type ProxyConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     uint16 `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Timer expresses an interval in calendar-ish components, matching the shape
// the settings UI edits.
type Timer struct {
	Days    uint32 `json:"days"`
	Hours   uint32 `json:"hours"`
	Minutes uint32 `json:"minutes"`
	Seconds uint32 `json:"seconds"`
}

const (
	DefaultMaxFileSize      = 100_000
	DefaultFetchTimeout     = 30
	DefaultDomainCategory   = "blocked_domains"
	DefaultURLCategory      = "blocked_urls"
	defaultSettingsFileName = "settings.json"
)

var (
	//go:embed default_settings.json
	defaultConfig []byte

	configValue atomic.Value
	configMu    sync.Mutex
)

func init() {
	configValue.Store(Config{})
}

func settingsFilePath() string {
	return filepath.Join(support.GetEnv("DATA_DIR", "data"), defaultSettingsFileName)
}

// ReadSettings loads the settings file, creating it from the embedded default
// configuration when missing.
func ReadSettings() {
	path := settingsFilePath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Settings file not found, creating with default configuration", "path", path)

			if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
				log.Error("Error creating directory for settings file", "error", err)
				return
			}
			if err := os.WriteFile(path, defaultConfig, os.ModePerm); err != nil {
				log.Error("Error writing default settings file", "error", err)
				return
			}
			data = defaultConfig
		} else {
			log.Error("Error reading settings file", "error", err)
			return
		}
	}

	var newConfig Config
	if err := json.Unmarshal(data, &newConfig); err != nil {
		log.Error("Error unmarshalling settings file", "error", err)
		return
	}

	if err := applyConfigUpdate(newConfig, false); err != nil {
		log.Error("Error applying configuration from settings file", "error", err)
		return
	}

	log.Debug("Settings file loaded successfully")
}

// SetConfig applies a new settings snapshot and persists it to disk.
func SetConfig(newConfig Config) {
	if err := applyConfigUpdate(newConfig, true); err != nil {
		log.Error("Error applying configuration update", "error", err)
		return
	}

	log.Debug("Configuration updated and written to file successfully")
}

// SetConfigForTests swaps the snapshot without touching the filesystem.
func SetConfigForTests(newConfig Config) {
	configMu.Lock()
	defer configMu.Unlock()
	configValue.Store(newConfig)
	applyIntervals()
}

func applyConfigUpdate(newConfig Config, persist bool) error {
	configMu.Lock()
	defer configMu.Unlock()

	configValue.Store(newConfig)
	applyIntervals()

	var errs []error

	if persist {
		data, err := json.MarshalIndent(newConfig, "", "  ")
		if err != nil {
			log.Error("Error marshalling new configuration", "error", err)
			errs = append(errs, err)
		} else if err := os.WriteFile(settingsFilePath(), data, os.ModePerm); err != nil {
			log.Error("Error writing new configuration to file", "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// GetConfig returns the current settings snapshot.
func GetConfig() Config {
	return configValue.Load().(Config)
}

// MaxExportLines returns the per-file line cap with the default floor applied.
func MaxExportLines() int {
	if size := GetConfig().System.MaxFileSize; size > 0 {
		return size
	}
	return DefaultMaxFileSize
}

// FetchTimeoutSeconds returns the per-request fetch timeout.
func FetchTimeoutSeconds() uint32 {
	if t := GetConfig().Fetcher.Timeout; t > 0 {
		return t
	}
	return DefaultFetchTimeout
}

// DomainCategory returns the proxy-format category label for domains.
func DomainCategory() string {
	if c := GetConfig().ProxyFormat.DomainCategory; c != "" {
		return c
	}
	return DefaultDomainCategory
}

// URLCategory returns the proxy-format category label for URLs.
func URLCategory() string {
	if c := GetConfig().ProxyFormat.URLCategory; c != "" {
		return c
	}
	return DefaultURLCategory
}
