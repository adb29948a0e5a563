// Package updater checks a release feed for a newer build, downloads it
// while streaming progress to an observer, installs it and restarts.
package updater

import (
	"fmt"

	"github.com/waldirborbajr/autoupdate/config"
	"github.com/waldirborbajr/autoupdate/events"
)

// Updater bundles a Checker and an Installer sharing one host and feed.
type Updater struct {
	Checker   *Checker
	Installer *Installer
}

// New wires the HTTP feed, HTTP downloader and executable applier from cfg.
// WithApplier swaps the applier.
func New(cfg config.Config, host Host, sink events.Sink, opts ...Option) *Updater {
	ua := UserAgent(host.CurrentVersion())
	resolve := NewHTTPResolver(cfg.UpdateCheckURL, ua)

	opts = append([]Option{
		WithRequestTimeout(cfg.UpdateRequestTimeout),
		WithDownloadTimeout(cfg.UpdateDownloadTimeout),
	}, opts...)

	var applier Applier = NewSelfApplier("")
	if a := buildOptions(opts).applier; a != nil {
		applier = a
	}

	return &Updater{
		Checker:   NewChecker(host, resolve, opts...),
		Installer: NewInstaller(host, resolve, NewHTTPDownloader(cfg.UpdateDownloadDir, ua), applier, sink, opts...),
	}
}

// UserAgent identifies this updater to the feed and artifact servers.
func UserAgent(currentVersion string) string {
	return fmt.Sprintf("autoupdate/%s (%s)", currentVersion, Detect().Key())
}
