package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		envVars     map[string]string
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "8080", cfg.Server.Port)
				assert.Equal(t, "http://127.0.0.1:8000/api", cfg.Backend.BaseURL)
				assert.Equal(t, 2*time.Second, cfg.Jobs.PollInterval())
				assert.Equal(t, 0.8, cfg.Rules.PromoteThreshold)
				assert.Equal(t, DocumentSourceBackend, cfg.Documents.Source)
				assert.Equal(t, time.Minute, cfg.Documents.SweepInterval())
				assert.False(t, cfg.Redis.Enabled)
				assert.True(t, cfg.IsDevelopment())
			},
		},
		{
			name: "explicit backend and poll interval",
			envVars: map[string]string{
				"AP_API_BASE_URL":       "https://ap.example.com/api",
				"JOBS_POLL_INTERVAL_MS": "500",
				"PORT":                  "9090",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://ap.example.com/api", cfg.Backend.BaseURL)
				assert.Equal(t, 500*time.Millisecond, cfg.Jobs.PollInterval())
				assert.Equal(t, "9090", cfg.Server.Port)
			},
		},
		{
			name: "invalid backend url",
			envVars: map[string]string{
				"AP_API_BASE_URL": "not a url",
			},
			expectError: true,
		},
		{
			name: "s3 source without bucket",
			envVars: map[string]string{
				"DOCUMENTS_SOURCE": "s3",
			},
			expectError: true,
		},
		{
			name: "unknown document source",
			envVars: map[string]string{
				"DOCUMENTS_SOURCE": "ftp",
			},
			expectError: true,
		},
		{
			name: "threshold out of range",
			envVars: map[string]string{
				"RULES_PROMOTE_THRESHOLD": "1.5",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := LoadConfig()

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestValidateDocumentsConfig(t *testing.T) {
	cfg := DocumentsConfig{
		Source:         DocumentSourceS3,
		MaxOpenHandles: 10,
		SweepSeconds:   30,
		S3Bucket:       "ap-documents",
		S3AccessKeyID:  "AKIA123",
	}
	assert.Error(t, validateDocumentsConfig(&cfg), "key id without secret")

	cfg.S3SecretAccessKey = "secret"
	assert.NoError(t, validateDocumentsConfig(&cfg))
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workbench.yaml")
	content := `server:
  port: "9191"
  allowed_origins:
    - http://localhost:5173
backend:
  base_url: https://ap.internal/api
rate_limit:
  copilot_per_minute: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("AP_API_TIMEOUT_SECONDS", "12")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9191", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://ap.internal/api", cfg.Backend.BaseURL)
	assert.Equal(t, 12*time.Second, cfg.Backend.Timeout())
	assert.Equal(t, 5, cfg.RateLimit.CopilotPerMinute)
	assert.Equal(t, 10, cfg.RateLimit.UploadsPerMinute)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := LoadConfig()
	assert.Error(t, err)
}
