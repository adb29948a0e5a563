package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waldirborbajr/autoupdate/logger"
)

var configKeys = []string{
	"DEBUG_MODE", "LOG_FILE", "UPDATE_CHECK_URL", "AUTO_UPDATE", "UPDATE_DOWNLOAD_DIR",
	"UPDATE_CHECK_INTERVAL", "UPDATE_REQUEST_TIMEOUT", "UPDATE_DOWNLOAD_TIMEOUT", "UPDATE_HISTORY_DB",
}

// clearEnv unsets every key for the test and restores it afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPDATE_CHECK_URL", "https://updates.example.com/{{target}}/{{arch}}/{{current_version}}")

	cfg, err := LoadConfig(missingEnvFile(t))

	require.NoError(t, err)
	assert.False(t, cfg.DebugMode)
	assert.False(t, cfg.AutoUpdate)
	assert.Equal(t, os.TempDir(), cfg.UpdateDownloadDir)
	assert.Equal(t, DefaultCheckInterval, cfg.UpdateCheckInterval)
	assert.Equal(t, DefaultRequestTimeout, cfg.UpdateRequestTimeout)
	assert.Equal(t, DefaultDownloadTimeout, cfg.UpdateDownloadTimeout)
	assert.Empty(t, cfg.UpdateHistoryDB)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPDATE_CHECK_URL", " https://updates.example.com/latest ")
	t.Setenv("DEBUG_MODE", "true")
	t.Setenv("AUTO_UPDATE", "1")
	t.Setenv("UPDATE_DOWNLOAD_DIR", "/var/cache/app")
	t.Setenv("UPDATE_CHECK_INTERVAL", "30m")
	t.Setenv("UPDATE_REQUEST_TIMEOUT", "5s")
	t.Setenv("UPDATE_DOWNLOAD_TIMEOUT", "2m")
	t.Setenv("UPDATE_HISTORY_DB", "/var/lib/app/history.db")

	cfg, err := LoadConfig(missingEnvFile(t))

	require.NoError(t, err)
	assert.Equal(t, "https://updates.example.com/latest", cfg.UpdateCheckURL)
	assert.True(t, cfg.DebugMode)
	assert.True(t, cfg.AutoUpdate)
	assert.Equal(t, "/var/cache/app", cfg.UpdateDownloadDir)
	assert.Equal(t, 30*time.Minute, cfg.UpdateCheckInterval)
	assert.Equal(t, 5*time.Second, cfg.UpdateRequestTimeout)
	assert.Equal(t, 2*time.Minute, cfg.UpdateDownloadTimeout)
	assert.Equal(t, "/var/lib/app/history.db", cfg.UpdateHistoryDB)
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), "updater.env")
	content := "UPDATE_CHECK_URL=http://localhost:8080/feed\nAUTO_UPDATE=true\nUPDATE_CHECK_INTERVAL=1h\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	cfg, err := LoadConfig(envFile)

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/feed", cfg.UpdateCheckURL)
	assert.True(t, cfg.AutoUpdate)
	assert.Equal(t, time.Hour, cfg.UpdateCheckInterval)
}

func TestLoadConfigInvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPDATE_CHECK_URL", "https://updates.example.com/latest")
	t.Setenv("AUTO_UPDATE", "sometimes")
	t.Setenv("UPDATE_CHECK_INTERVAL", "often")
	t.Setenv("UPDATE_REQUEST_TIMEOUT", "-5s")

	cfg, err := LoadConfig(missingEnvFile(t))

	require.NoError(t, err)
	assert.False(t, cfg.AutoUpdate)
	assert.Equal(t, DefaultCheckInterval, cfg.UpdateCheckInterval)
	assert.Equal(t, DefaultRequestTimeout, cfg.UpdateRequestTimeout)
}

func TestLoadConfigMalformedEnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), "broken.env")
	require.NoError(t, os.Mkdir(envFile, 0o755))

	_, err := LoadConfig(envFile)

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "https", cfg: Config{UpdateCheckURL: "https://u.example.com/feed", UpdateRequestTimeout: time.Second}},
		{name: "templated", cfg: Config{UpdateCheckURL: "https://u.example.com/{{target}}/{{arch}}", UpdateRequestTimeout: time.Second}},
		{name: "missing url", cfg: Config{UpdateRequestTimeout: time.Second}, wantErr: true},
		{name: "ftp scheme", cfg: Config{UpdateCheckURL: "ftp://u.example.com/feed", UpdateRequestTimeout: time.Second}, wantErr: true},
		{name: "no scheme", cfg: Config{UpdateCheckURL: "u.example.com/feed", UpdateRequestTimeout: time.Second}, wantErr: true},
		{name: "zero timeout", cfg: Config{UpdateCheckURL: "https://u.example.com/feed"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfigWarnsBeforeLoggerInit(t *testing.T) {
	clearEnv(t)
	var buf bytes.Buffer
	logger.Bootstrap(&buf)
	t.Cleanup(func() { logger.Bootstrap(io.Discard) })

	t.Setenv("UPDATE_CHECK_URL", "https://updates.example.com/latest")
	t.Setenv("UPDATE_CHECK_INTERVAL", "every day")
	t.Setenv("AUTO_UPDATE", "yep")

	cfg, err := LoadConfig(missingEnvFile(t))

	require.NoError(t, err)
	assert.Equal(t, DefaultCheckInterval, cfg.UpdateCheckInterval)
	assert.Contains(t, buf.String(), "Invalid UPDATE_CHECK_INTERVAL value")
	assert.Contains(t, buf.String(), "Invalid AUTO_UPDATE value")
}
