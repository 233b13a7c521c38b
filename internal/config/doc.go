// Package config provides configuration management for songbot.
//
// This package handles:
//   - Default configuration values
//   - Loading settings from JSON, YAML or TOML files through viper
//   - SONGBOT_* environment overrides
//   - Validation and path normalization
//
// # Default Settings
//
//	settings := config.DefaultSettings()
//	// Cache in the user cache dir, entries evicted after one day
//	// Fetch pool sized at 1.5x the CPU count
//
// # Loading from File
//
//	settings, err := config.Load("/etc/songbot/config.yaml")
//
// A missing file is not an error; defaults and environment values apply.
// Environment variables use the key name upper-cased with the SONGBOT_
// prefix, e.g. SONGBOT_CACHE_TTL_SECONDS=3600.
package config
