package updater

import (
	"context"
	"fmt"
	"time"

	"github.com/waldirborbajr/autoupdate/logger"
)

// RunUpdateFlow checks for an update and, when autoInstall is set and one
// exists, hands over to the installer. The check result is always returned.
func (u *Updater) RunUpdateFlow(ctx context.Context, autoInstall bool) (CheckResult, error) {
	log := logger.GetLogger()

	res := u.Checker.Check(ctx)
	switch res.Status {
	case CheckFailed:
		return res, res.Err
	case NoUpdateAvailable:
		log.Debug().Msg("No newer version found")
		return res, nil
	}

	if !autoInstall {
		log.Info().Str("version", res.Descriptor.Candidate().Original()).Msg("Update available, auto-update disabled")
		return res, nil
	}

	log.Info().Msg("Auto-update enabled, downloading update...")
	return res, u.Installer.DownloadAndInstall(ctx)
}

// Watch runs RunUpdateFlow now and then every interval until ctx is done.
// Failures are reported to onResult and do not stop the loop.
func (u *Updater) Watch(ctx context.Context, interval time.Duration, autoInstall bool, onResult func(CheckResult, error)) error {
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", interval)
	}
	log := logger.GetLogger()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := u.RunUpdateFlow(ctx, autoInstall)
		if err != nil {
			log.Error().Err(err).Msg("Scheduled update run failed")
		}
		if onResult != nil {
			onResult(res, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
