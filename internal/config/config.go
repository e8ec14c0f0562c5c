package config

import "time"

// Config holds runtime settings for the SecureVault CLI.
//
// Units: RequestTimeout and OnlineCheckInterval are time.Durations
// (e.g., 15*time.Second).
type Config struct {
	ServerURL           string
	RequestTimeout      time.Duration
	StoragePath         string
	StoragePrefix       string
	Encrypt             bool
	Passphrase          string
	DefaultCategory     string
	PasswordLength      int
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "https://api.wahaj.codes:8443/v2/api"
	c.RequestTimeout = 15 * time.Second
	c.StoragePath = "securevault.db"
	c.StoragePrefix = "secureVault_"
	c.Encrypt = true
	c.Passphrase = ""
	c.DefaultCategory = "Uncategorized"
	c.PasswordLength = 16
	c.OnlineCheckInterval = 3 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
