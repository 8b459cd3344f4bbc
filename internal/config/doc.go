// Package config loads, validates, and normalizes the TOML configuration
// for the dubbing pipeline.
package config
