// Package config provides configuration structures and validation for the
// application. It handles environment-based configuration for all major
// components: the HTTP facade, local sqlite storage, the Google Sheets
// remote ledger, and the sync engine's operational parameters.
package config

import (
	"errors"
	"strings"
	"time"
)

// Backend names the remote backend the sync strategy targets
const (
	BackendSheets = "sheets"
	BackendAPI    = "api"
)

// Config holds the complete application configuration. Each field represents
// a subsystem's configuration and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	SQLite      SQLiteConfig
	Google      GoogleConfig
	RemoteAPI   RemoteAPIConfig
	Sync        SyncConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// SQLiteConfig contains local database configuration
type SQLiteConfig struct {
	Path           string        // Database file path
	BusyTimeout    time.Duration // How long a locked database is retried
	MigrationsPath string        // Path to migration files
}

// GoogleConfig contains the Google Sheets / Drive / OAuth endpoints and the
// offline credential. Base URLs are overridable so tests can point at fakes.
type GoogleConfig struct {
	ClientID        string
	ClientSecret    string
	RefreshToken    string
	Account         string // account identifier label, informational
	TokenURL        string
	SheetsBaseURL   string
	DriveBaseURL    string
	SpreadsheetName string
	TokenSkew       time.Duration // treat tokens expiring within this window as unusable
	RequestTimeout  time.Duration
}

// RemoteAPIConfig contains the mock REST backend configuration
type RemoteAPIConfig struct {
	BaseURL        string
	Token          string // static bearer token; empty means unauthenticated
	RequestTimeout time.Duration
}

// SyncConfig contains sync engine configuration
type SyncConfig struct {
	Backend            string        // which strategy drains the queue: sheets or api
	DrainPoolSize      int           // worker pool size for opportunistic drains
	TombstoneRetention time.Duration // how long local deletion records are kept
}

// validate performs validation of all configuration values, ensuring they
// meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	if c.SQLite.Path == "" {
		validationErrors = append(validationErrors, "SQLITE_PATH is required")
	}
	if c.SQLite.BusyTimeout <= 0 {
		validationErrors = append(validationErrors, "SQLITE_BUSY_TIMEOUT must be greater than 0")
	}
	if c.SQLite.MigrationsPath == "" {
		validationErrors = append(validationErrors, "SQLITE_MIGRATIONS_PATH is required")
	}

	switch c.Sync.Backend {
	case BackendSheets:
		if c.Google.TokenURL == "" {
			validationErrors = append(validationErrors, "GOOGLE_TOKEN_URL is required")
		}
		if c.Google.SheetsBaseURL == "" {
			validationErrors = append(validationErrors, "GOOGLE_SHEETS_BASE_URL is required")
		}
		if c.Google.DriveBaseURL == "" {
			validationErrors = append(validationErrors, "GOOGLE_DRIVE_BASE_URL is required")
		}
		if c.Google.SpreadsheetName == "" {
			validationErrors = append(validationErrors, "GOOGLE_SPREADSHEET_NAME is required")
		}
	case BackendAPI:
		if c.RemoteAPI.BaseURL == "" {
			validationErrors = append(validationErrors, "REMOTE_API_BASE_URL is required")
		}
	default:
		validationErrors = append(validationErrors, "SYNC_BACKEND must be one of: sheets, api")
	}

	if c.Sync.DrainPoolSize <= 0 {
		validationErrors = append(validationErrors, "SYNC_DRAIN_POOL_SIZE must be greater than 0")
	}
	if c.Sync.TombstoneRetention <= 0 {
		validationErrors = append(validationErrors, "SYNC_TOMBSTONE_RETENTION must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
