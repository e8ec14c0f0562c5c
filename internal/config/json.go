package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/wahaj/securevault/internal/flagx"
	"github.com/wahaj/securevault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "15s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	StoragePath         string         `json:"storage_path"`
	StoragePrefix       string         `json:"storage_prefix"`
	Encrypt             *bool          `json:"encrypt"`
	Passphrase          string         `json:"passphrase"`
	DefaultCategory     string         `json:"default_category"`
	PasswordLength      int            `json:"password_length"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Behavior:
//   - Reads and unmarshals the JSON into JsonConfig.
//   - Copies set fields into the provided Config; zero values keep defaults.
//   - Panics on read or unmarshal errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.StoragePath != "" {
		cfg.StoragePath = jc.StoragePath
	}
	if jc.StoragePrefix != "" {
		cfg.StoragePrefix = jc.StoragePrefix
	}
	if jc.Encrypt != nil {
		cfg.Encrypt = *jc.Encrypt
	}
	if jc.Passphrase != "" {
		cfg.Passphrase = jc.Passphrase
	}
	if jc.DefaultCategory != "" {
		cfg.DefaultCategory = jc.DefaultCategory
	}
	if jc.PasswordLength > 0 {
		cfg.PasswordLength = jc.PasswordLength
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
}
