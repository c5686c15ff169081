package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigWithName loads configuration using the specified name, auto-detecting the file type
func LoadConfigWithName(configName string) (*Config, error) {
	return loadConfig(configName, "")
}

// LoadConfigWithNameAndType loads configuration with explicit name and type specification
func LoadConfigWithNameAndType(configName, configType string) (*Config, error) {
	return loadConfig(configName, configType)
}

// LoadConfig loads configuration from a .env file using the provided base name.
// This is the preferred method for loading environment-specific configurations.
func LoadConfig(configName string) (*Config, error) {
	configFileName := fmt.Sprintf("%s.env", configName)
	return loadConfig(configFileName, "env")
}

// loadConfig handles configuration loading from files and environment variables.
// It implements a layered approach to configuration:
// 1. Load defaults
// 2. Override with config file values (if found)
// 3. Override with environment variables
// 4. Validate the final configuration
func loadConfig(configName, configType string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(configName)
	if configType != "" {
		v.SetConfigType(configType)
	}

	// Add config paths in order of priority
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Printf("INFO: No config file '%s' found, relying on environment variables and defaults.\n", configName)
		} else {
			fmt.Printf("WARNING: Error reading config file (%s): %v\n", v.ConfigFileUsed(), err)
		}
	} else {
		fmt.Printf("INFO: Config loaded from file: %s\n", v.ConfigFileUsed())
	}

	v.AutomaticEnv()

	config := &Config{
		Application: ApplicationConfig{
			Env:  v.GetString("APP_ENV"),
			Name: v.GetString("APP_NAME"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Server: ServerConfig{
			Port:            v.GetInt("SERVER_PORT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("SERVER_IDLE_TIMEOUT"),
		},
		SQLite: SQLiteConfig{
			Path:           v.GetString("SQLITE_PATH"),
			BusyTimeout:    v.GetDuration("SQLITE_BUSY_TIMEOUT"),
			MigrationsPath: v.GetString("SQLITE_MIGRATIONS_PATH"),
		},
		Google: GoogleConfig{
			ClientID:        v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret:    v.GetString("GOOGLE_CLIENT_SECRET"),
			RefreshToken:    v.GetString("GOOGLE_REFRESH_TOKEN"),
			Account:         v.GetString("GOOGLE_ACCOUNT"),
			TokenURL:        v.GetString("GOOGLE_TOKEN_URL"),
			SheetsBaseURL:   v.GetString("GOOGLE_SHEETS_BASE_URL"),
			DriveBaseURL:    v.GetString("GOOGLE_DRIVE_BASE_URL"),
			SpreadsheetName: v.GetString("GOOGLE_SPREADSHEET_NAME"),
			TokenSkew:       v.GetDuration("GOOGLE_TOKEN_SKEW"),
			RequestTimeout:  v.GetDuration("GOOGLE_REQUEST_TIMEOUT"),
		},
		RemoteAPI: RemoteAPIConfig{
			BaseURL:        v.GetString("REMOTE_API_BASE_URL"),
			Token:          v.GetString("REMOTE_API_TOKEN"),
			RequestTimeout: v.GetDuration("REMOTE_API_REQUEST_TIMEOUT"),
		},
		Sync: SyncConfig{
			Backend:            v.GetString("SYNC_BACKEND"),
			DrainPoolSize:      v.GetInt("SYNC_DRAIN_POOL_SIZE"),
			TombstoneRetention: v.GetDuration("SYNC_TOMBSTONE_RETENTION"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults initializes configuration with sensible default values.
// These values are used when no configuration file or environment variables are present.
func setDefaults(v *viper.Viper) {
	// HTTP server defaults - tuned for a local, single-user facade
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_IDLE_TIMEOUT", 120*time.Second)

	// Local storage defaults
	v.SetDefault("SQLITE_PATH", "expense-manager.db")
	v.SetDefault("SQLITE_BUSY_TIMEOUT", 5*time.Second)
	v.SetDefault("SQLITE_MIGRATIONS_PATH", "migrations/sqlite")

	// Google endpoints - production defaults, overridden in tests
	v.SetDefault("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token")
	v.SetDefault("GOOGLE_SHEETS_BASE_URL", "https://sheets.googleapis.com/v4")
	v.SetDefault("GOOGLE_DRIVE_BASE_URL", "https://www.googleapis.com/drive/v3")
	v.SetDefault("GOOGLE_SPREADSHEET_NAME", "Expense Manager Sync")
	v.SetDefault("GOOGLE_TOKEN_SKEW", time.Minute)
	v.SetDefault("GOOGLE_REQUEST_TIMEOUT", 30*time.Second)

	v.SetDefault("REMOTE_API_REQUEST_TIMEOUT", 30*time.Second)

	// Sync engine defaults
	v.SetDefault("SYNC_BACKEND", BackendSheets)
	v.SetDefault("SYNC_DRAIN_POOL_SIZE", 4)
	v.SetDefault("SYNC_TOMBSTONE_RETENTION", 30*24*time.Hour)

	// Logging defaults - 'info' provides good balance of information vs noise
	v.SetDefault("LOG_LEVEL", "info")

	// Application defaults
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "expense-manager")
}
