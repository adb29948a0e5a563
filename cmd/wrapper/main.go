//go:build wrapper
// +build wrapper

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/waldirborbajr/autoupdate/config"
	"github.com/waldirborbajr/autoupdate/logger"
	"github.com/waldirborbajr/autoupdate/updater"
)

// version is set at build time using -ldflags="-X main.version=VERSION"
var version = "0.0.0"

func main() {
	envFile := flag.String("env-file", ".env", "path to the .env file")
	flag.Parse()

	// Load config
	logger.Bootstrap(os.Stderr)
	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		printConfigError(err)
		os.Exit(1)
	}

	// Init logger
	log := logger.InitLogger(logger.Options{Debug: cfg.DebugMode, File: cfg.LogFile})

	// Check feed
	if err := checkFeed(cfg); err != nil {
		log.Error().Err(err).Msg("Update feed check failed")
		printFeedTips(err)
		os.Exit(2)
	}
	log.Info().Msg("Update feed check OK")

	// Check the executable can be replaced
	if err := updater.NewSelfApplier("").CheckPermissions(); err != nil {
		log.Error().Err(err).Msg("Executable permission check failed")
		printPermissionTips(err)
		os.Exit(3)
	}
	log.Info().Msg("Executable permission check OK")

	// Check the staging directory
	if err := checkDownloadDir(cfg.UpdateDownloadDir); err != nil {
		log.Warn().Err(err).Msg("Download directory check failed")
		fmt.Fprintf(os.Stderr, "Warning: updates cannot be staged in %s: %v\n", cfg.UpdateDownloadDir, err)
		os.Exit(4)
	}

	log.Info().Msg("All startup checks passed. Updates can be installed.")
	fmt.Println("All startup checks passed. No issues detected.")
}

func printConfigError(err error) {
	fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
	if strings.Contains(err.Error(), "UPDATE_CHECK_URL") {
		fmt.Fprintln(os.Stderr, "Suggested action: ensure UPDATE_CHECK_URL is set in .env or environment and uses http or https")
	}
	fmt.Fprintln(os.Stderr, "Tip: run with DEBUG_MODE=true for more detailed logs.")
}

func checkFeed(cfg config.Config) error {
	feed, err := updater.NewHTTPResolver(cfg.UpdateCheckURL, updater.UserAgent(version))(version)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.UpdateRequestTimeout)
	defer cancel()
	_, err = feed.Latest(ctx)
	return err
}

func printFeedTips(err error) {
	fmt.Fprintf(os.Stderr, "Update feed check error: %v\n", err)
	fmt.Fprintln(os.Stderr, "Suggested actions:")
	fmt.Fprintln(os.Stderr, " - Verify UPDATE_CHECK_URL points at the release manifest and is reachable from this host")
	fmt.Fprintln(os.Stderr, " - Open the URL in a browser or with curl and confirm it returns JSON or 204")
	fmt.Fprintln(os.Stderr, " - Check proxies and firewalls between this host and the feed")
	fmt.Fprintln(os.Stderr, " - If the feed is slow, raise UPDATE_REQUEST_TIMEOUT")
}

func printPermissionTips(err error) {
	fmt.Fprintf(os.Stderr, "Permission check error: %v\n", err)
	fmt.Fprintln(os.Stderr, "Suggested actions:")
	fmt.Fprintln(os.Stderr, " - Run the updater as the user that owns the installed binary")
	fmt.Fprintln(os.Stderr, " - Make sure the install directory is writable (a .new and a .bak file are created next to the binary)")
}

func checkDownloadDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
