package updater

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-version"
)

// Checker asks the feed whether a newer version exists, retrying transient
// failures a bounded number of times with a fixed delay.
type Checker struct {
	host    Host
	resolve Resolver
	opts    options
}

func NewChecker(host Host, resolve Resolver, opts ...Option) *Checker {
	return &Checker{
		host:    host,
		resolve: resolve,
		opts:    buildOptions(opts),
	}
}

// Check never returns an error value of its own: every failure is folded
// into a CheckFailed result.
func (c *Checker) Check(ctx context.Context) CheckResult {
	log := c.opts.logger().With().Str("check_id", uuid.NewString()).Logger()

	current := c.host.CurrentVersion()
	log.Info().Str("current_version", current).Msg("Checking for updates")

	feed, err := c.resolve(current)
	if err != nil {
		log.Error().Err(err).Msg("Updater initialization failed")
		return failed(fmt.Errorf("%w: %w", ErrInitialization, err))
	}
	currentVer, err := version.NewVersion(current)
	if err != nil {
		log.Error().Err(err).Msg("Running version is not a valid version")
		return failed(fmt.Errorf("%w: current version %q: %w", ErrInitialization, current, err))
	}

	state := NewRetryState(c.opts.maxAttempts, c.opts.retryDelay)
	var lastErr error
	for state.Begin() {
		log.Debug().Int("attempt", state.Attempt).Int("max_attempts", state.MaxAttempts).Msg("Querying update feed")

		rel, err := queryFeed(ctx, feed, c.opts.requestTimeout)
		if err == nil {
			if rel == nil {
				log.Info().Msg("Already running the latest version")
				return CheckResult{Status: NoUpdateAvailable}
			}
			d, err := NewVersionDescriptor(currentVer, rel)
			if err != nil {
				log.Error().Err(err).Msg("Feed returned an unusable release")
				return failed(err)
			}
			log.Info().
				Str("current_version", current).
				Str("new_version", d.Candidate().Original()).
				Str("download_url", d.DownloadLocation().String()).
				Msg("Update available")
			return CheckResult{Status: UpdateAvailable, Descriptor: d}
		}

		if errors.Is(err, ErrInvalidRelease) {
			log.Error().Err(err).Msg("Feed returned an unusable release")
			return failed(err)
		}

		lastErr = err
		log.Warn().Err(err).Int("attempt", state.Attempt).Int("max_attempts", state.MaxAttempts).Msg("Update check attempt failed")

		delay, ok := state.Next()
		if !ok {
			break
		}
		log.Info().Dur("delay", delay).Msg("Waiting before retrying update check")
		if err := c.opts.sleep(ctx, delay); err != nil {
			return failed(fmt.Errorf("%w: %w", ErrTransientFeed, err))
		}
	}

	log.Error().Err(lastErr).Int("attempts", state.Attempt).Msg("Update check failed")
	return failed(fmt.Errorf("%w: %w", ErrTransientFeed, lastErr))
}

func queryFeed(ctx context.Context, feed Feed, timeout time.Duration) (*Release, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return feed.Latest(ctx)
}

func failed(err error) CheckResult {
	return CheckResult{Status: CheckFailed, Err: err}
}
