package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/waldirborbajr/autoupdate/logger"
)

const (
	DefaultCheckInterval   = 6 * time.Hour
	DefaultRequestTimeout  = 20 * time.Second
	DefaultDownloadTimeout = 10 * time.Minute
)

// Config holds the update feed location and how the updater behaves
type Config struct {
	DebugMode bool
	LogFile   string

	// Update settings
	UpdateCheckURL        string        // Feed endpoint returning the release manifest
	AutoUpdate            bool          // If true, the watch loop installs updates without asking
	UpdateDownloadDir     string        // Directory where artifacts are staged
	UpdateCheckInterval   time.Duration // Period of the watch loop
	UpdateRequestTimeout  time.Duration // Per-request timeout for feed queries
	UpdateDownloadTimeout time.Duration // Upper bound for one artifact download
	UpdateHistoryDB       string        // Optional SQLite file recording update activity
}

// LoadConfig loads environment variables from the given .env file (".env" when empty).
// A missing file is not an error: the process environment alone may carry the settings.
func LoadConfig(envFile string) (Config, error) {
	log := logger.GetLogger()

	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Error().Err(err).Str("file", envFile).Msg("Error loading .env file")
			return Config{}, fmt.Errorf("error loading %s: %w", envFile, err)
		}
		log.Debug().Str("file", envFile).Msg("No .env file, using process environment")
	} else {
		log.Info().Str("file", envFile).Msg(".env file loaded successfully")
	}

	debugMode := parseBool("DEBUG_MODE")
	autoUpdate := parseBool("AUTO_UPDATE")

	updateDir := os.Getenv("UPDATE_DOWNLOAD_DIR")
	if updateDir == "" {
		updateDir = os.TempDir()
	}

	cfg := Config{
		DebugMode:             debugMode,
		LogFile:               os.Getenv("LOG_FILE"),
		UpdateCheckURL:        strings.TrimSpace(os.Getenv("UPDATE_CHECK_URL")),
		AutoUpdate:            autoUpdate,
		UpdateDownloadDir:     updateDir,
		UpdateCheckInterval:   parseDuration("UPDATE_CHECK_INTERVAL", DefaultCheckInterval),
		UpdateRequestTimeout:  parseDuration("UPDATE_REQUEST_TIMEOUT", DefaultRequestTimeout),
		UpdateDownloadTimeout: parseDuration("UPDATE_DOWNLOAD_TIMEOUT", DefaultDownloadTimeout),
		UpdateHistoryDB:       os.Getenv("UPDATE_HISTORY_DB"),
	}

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid update configuration")
		return Config{}, err
	}

	// Log loaded configuration for troubleshooting
	log.Debug().
		Bool("DEBUG_MODE", cfg.DebugMode).
		Str("LOG_FILE", cfg.LogFile).
		Str("UPDATE_CHECK_URL", cfg.UpdateCheckURL).
		Bool("AUTO_UPDATE", cfg.AutoUpdate).
		Str("UPDATE_DOWNLOAD_DIR", cfg.UpdateDownloadDir).
		Dur("UPDATE_CHECK_INTERVAL", cfg.UpdateCheckInterval).
		Dur("UPDATE_REQUEST_TIMEOUT", cfg.UpdateRequestTimeout).
		Dur("UPDATE_DOWNLOAD_TIMEOUT", cfg.UpdateDownloadTimeout).
		Str("UPDATE_HISTORY_DB", cfg.UpdateHistoryDB).
		Msg("Configuration loaded")

	return cfg, nil
}

// Validate checks the fields that have no sensible default.
func (c Config) Validate() error {
	if c.UpdateCheckURL == "" {
		return fmt.Errorf("missing required UPDATE_CHECK_URL environment variable")
	}
	// placeholders are not valid URL syntax everywhere, so check a neutral rendition
	probe := strings.NewReplacer("{{", "", "}}", "").Replace(c.UpdateCheckURL)
	u, err := url.Parse(probe)
	if err != nil {
		return fmt.Errorf("invalid UPDATE_CHECK_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid UPDATE_CHECK_URL: unsupported scheme %q", u.Scheme)
	}
	if c.UpdateRequestTimeout <= 0 {
		return fmt.Errorf("UPDATE_REQUEST_TIMEOUT must be positive")
	}
	return nil
}

func parseBool(key string) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		logger.Warn().Err(err).Str(key, raw).Msgf("Invalid %s value, defaulting to false", key)
		return false
	}
	return v
}

func parseDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		logger.Warn().Err(err).Str(key, raw).Dur("default", def).Msgf("Invalid %s value, using default", key)
		return def
	}
	return d
}
