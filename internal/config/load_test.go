package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_HappyPath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	tempConfigsSubDir := filepath.Join(tempDir, "configs")
	err = os.Mkdir(tempConfigsSubDir, 0755)
	require.NoError(t, err)

	testAppName := "TestApp"
	testPort := 9090
	testLogLevel := "debug"
	testDBPath := "data/test.db"

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nSQLITE_PATH=%s\n",
		testAppName, testPort, testLogLevel, testDBPath,
	)
	envFilePath := filepath.Join(tempConfigsSubDir, "test_happy.env")
	err = os.WriteFile(envFilePath, []byte(envContent), 0644)
	require.NoError(t, err)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, testAppName, cfg.Application.Name)
	assert.Equal(t, testPort, cfg.Server.Port)
	assert.Equal(t, testLogLevel, cfg.Logging.Level)
	assert.Equal(t, testDBPath, cfg.SQLite.Path)

	// Defaults fill the rest
	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, BackendSheets, cfg.Sync.Backend)
	assert.Equal(t, "Expense Manager Sync", cfg.Google.SpreadsheetName)
	assert.Equal(t, "https://oauth2.googleapis.com/token", cfg.Google.TokenURL)
	assert.Equal(t, 4, cfg.Sync.DrainPoolSize)
	assert.Equal(t, 30*24*time.Hour, cfg.Sync.TombstoneRetention)
}

func TestLoadConfig_DefaultsOnly(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test_defaults")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()
	require.NoError(t, os.Chdir(tempDir))

	cfg, err := LoadConfig("does_not_exist")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "expense-manager.db", cfg.SQLite.Path)
	assert.Equal(t, "migrations/sqlite", cfg.SQLite.MigrationsPath)
	assert.Equal(t, 5*time.Second, cfg.SQLite.BusyTimeout)
	assert.Equal(t, time.Minute, cfg.Google.TokenSkew)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg, err := loadConfig("nonexistent_file_for_defaults", "env")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "missing sqlite path",
			mutate:  func(c *Config) { c.SQLite.Path = "" },
			wantErr: "SQLITE_PATH is required",
		},
		{
			name:    "bad server port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "SERVER_PORT must be greater than 0",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Sync.Backend = "carrier-pigeon" },
			wantErr: "SYNC_BACKEND must be one of: sheets, api",
		},
		{
			name: "api backend requires base url",
			mutate: func(c *Config) {
				c.Sync.Backend = BackendAPI
				c.RemoteAPI.BaseURL = ""
			},
			wantErr: "REMOTE_API_BASE_URL is required",
		},
		{
			name: "api backend with base url is valid",
			mutate: func(c *Config) {
				c.Sync.Backend = BackendAPI
				c.RemoteAPI.BaseURL = "http://localhost:9999"
			},
			wantErr: "",
		},
		{
			name:    "sheets backend requires spreadsheet name",
			mutate:  func(c *Config) { c.Google.SpreadsheetName = "" },
			wantErr: "GOOGLE_SPREADSHEET_NAME is required",
		},
		{
			name:    "tombstone retention must be positive",
			mutate:  func(c *Config) { c.Sync.TombstoneRetention = 0 },
			wantErr: "SYNC_TOMBSTONE_RETENTION must be greater than 0",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}
