package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/waldirborbajr/autoupdate/config"
	"github.com/waldirborbajr/autoupdate/db"
	"github.com/waldirborbajr/autoupdate/events"
	"github.com/waldirborbajr/autoupdate/logger"
	"github.com/waldirborbajr/autoupdate/updater"
)

// app holds what one command invocation needs: the updater, the observer
// sinks and the optional history store.
type app struct {
	updater *updater.Updater
	history *db.History
	async   *events.Async
	once    sync.Once
}

func newApp(cfg config.Config, out io.Writer, host updater.Host, opts ...updater.Option) *app {
	log := logger.GetLogger()

	a := &app{}
	sinks := events.Fanout{events.NewJSONLines(out)}

	if cfg.UpdateHistoryDB != "" {
		h, err := db.OpenHistory(cfg.UpdateHistoryDB, uuid.NewString())
		if err != nil {
			// history is a convenience, never a reason to skip an update
			log.Warn().Err(err).Str("path", cfg.UpdateHistoryDB).Msg("Update history unavailable")
		} else {
			a.history = h
			sinks = append(sinks, h)
		}
	}

	a.async = events.NewAsync(sinks)
	a.updater = updater.New(cfg, &flushingHost{Host: host, beforeRestart: a.async.Flush}, a.async, opts...)
	return a
}

// close flushes pending events and releases the history store.
func (a *app) close() {
	a.once.Do(func() {
		a.async.Close()
		if dropped := a.async.Dropped(); dropped > 0 {
			logger.Warn().Uint64("dropped", dropped).Msg("Some update events were not delivered")
		}
		if a.history != nil {
			if err := a.history.Close(); err != nil {
				logger.Error().Err(err).Msg("Error closing update history")
			}
		}
	})
}

// flushingHost drains the event queue before the process image is replaced,
// so the host sees download-complete.
type flushingHost struct {
	updater.Host
	beforeRestart func()
}

func (h *flushingHost) Restart() error {
	h.beforeRestart()
	return h.Host.Restart()
}

func (a *app) recordCheck(ctx context.Context, res updater.CheckResult) {
	if a.history == nil {
		return
	}
	if err := a.history.RecordCheck(ctx, res); err != nil {
		logger.Warn().Err(err).Msg("Failed to record update check")
	}
}

// runCheck prints the UpdateInfo JSON, or null when the build is current.
func runCheck(ctx context.Context, cfg config.Config, out io.Writer) error {
	a := newApp(cfg, io.Discard, updater.NewProcessHost(version))
	defer a.close()

	res := a.updater.Checker.Check(ctx)
	a.recordCheck(ctx, res)
	return writeCheckResult(out, res)
}

func writeCheckResult(out io.Writer, res updater.CheckResult) error {
	switch res.Status {
	case updater.CheckFailed:
		return res.Err
	case updater.UpdateAvailable:
		return json.NewEncoder(out).Encode(res.Descriptor.Info())
	default:
		_, err := fmt.Fprintln(out, "null")
		return err
	}
}

// runInstall streams JSON-lines events to out. With a process host it only
// returns on failure.
func runInstall(ctx context.Context, cfg config.Config, out io.Writer, host updater.Host, opts ...updater.Option) error {
	a := newApp(cfg, out, host, opts...)
	defer a.close()

	return a.updater.Installer.DownloadAndInstall(ctx)
}

// runWatch checks every cfg.UpdateCheckInterval. A successful auto-install
// relaunches the binary with the same arguments so watching resumes.
func runWatch(ctx context.Context, cfg config.Config, out io.Writer, host updater.Host) error {
	a := newApp(cfg, out, host)
	defer a.close()

	logger.Info().
		Dur("interval", cfg.UpdateCheckInterval).
		Bool("auto_update", cfg.AutoUpdate).
		Msg("Watching for updates")

	err := a.updater.Watch(ctx, cfg.UpdateCheckInterval, cfg.AutoUpdate, func(res updater.CheckResult, _ error) {
		a.recordCheck(ctx, res)
		if res.Status == updater.UpdateAvailable && !cfg.AutoUpdate {
			a.async.Emit(events.UpdateAvailableEvent, res.Descriptor.Info())
		}
	})
	if errors.Is(err, context.Canceled) {
		logger.Info().Msg("Stopped watching for updates")
		return nil
	}
	return err
}

func runHistory(ctx context.Context, cfg config.Config, out io.Writer, limit int) error {
	if cfg.UpdateHistoryDB == "" {
		return fmt.Errorf("UPDATE_HISTORY_DB is not set")
	}
	h, err := db.OpenHistory(cfg.UpdateHistoryDB, "")
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	entries, err := h.Recent(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tKIND\tNAME\tVERSION\tDETAIL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Kind, e.Name, e.Version, e.Detail)
	}
	return tw.Flush()
}
