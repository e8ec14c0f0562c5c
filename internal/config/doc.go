// Package config loads runtime configuration for the SecureVault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend REST API
//	-s string   path of the local storage database file
//	-i int      online status check interval (seconds)
//	-l int      generated password length
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "15s" or integer nanoseconds:
//
//	{
//	  "server_url": "https://api.wahaj.codes:8443/v2/api",
//	  "request_timeout": "15s",
//	  "storage_path": "securevault.db",
//	  "storage_prefix": "secureVault_",
//	  "encrypt": true,
//	  "default_category": "Uncategorized",
//	  "password_length": 16,
//	  "online_check_interval": "3s"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
