// Package config loads and validates the TOML configuration file.
package config

import (
	"fmt"
	"strings"
)

// Defaults applied before the config file is decoded.
const (
	defaultPageSize   = 100
	defaultExportMIME = "application/pdf"
	defaultLogLevel   = "info"
	defaultLogFormat  = "auto"
)

// Config is the decoded configuration file. Zero values mean "use the
// built-in default"; DefaultConfig pre-fills them so a partial file only
// overrides what it mentions.
type Config struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenPath    string `toml:"token_path"`

	PageSize   int    `toml:"page_size"`
	ExportMIME string `toml:"export_mime"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		TokenPath:  DefaultTokenPath(),
		PageSize:   defaultPageSize,
		ExportMIME: defaultExportMIME,
		LogLevel:   defaultLogLevel,
		LogFormat:  defaultLogFormat,
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"auto": true, "text": true, "json": true,
}

// Validate checks a decoded Config for values that would misbehave at
// runtime. Credentials are not required here: read-only commands against a
// stored token work without them.
func Validate(cfg *Config) error {
	if cfg.PageSize < 1 || cfg.PageSize > 1000 {
		return fmt.Errorf("page_size must be between 1 and 1000, got %d", cfg.PageSize)
	}

	if !strings.Contains(cfg.ExportMIME, "/") {
		return fmt.Errorf("export_mime %q is not a MIME type", cfg.ExportMIME)
	}

	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", cfg.LogLevel)
	}

	if !validLogFormats[cfg.LogFormat] {
		return fmt.Errorf("log_format must be auto, text, or json, got %q", cfg.LogFormat)
	}

	return nil
}
