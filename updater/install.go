package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-version"
	"github.com/rs/zerolog"
	"github.com/waldirborbajr/autoupdate/events"
)

// State is where an Installer invocation currently stands.
type State int32

const (
	StateIdle State = iota
	StateChecking
	StateDownloading
	StateInstalling
	StateRestarting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateDownloading:
		return "downloading"
	case StateInstalling:
		return "installing"
	case StateRestarting:
		return "restarting"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

var (
	errArtifactTooLarge = errors.New("artifact larger than advertised")
	errArtifactMismatch = errors.New("artifact size differs from advertised")
	errArtifactEmpty    = errors.New("artifact is empty")
)

// Installer re-checks the feed, downloads the artifact while reporting
// progress, applies it and restarts the process. Only one invocation runs at
// a time.
type Installer struct {
	host       Host
	resolve    Resolver
	downloader Downloader
	applier    Applier
	sink       events.Sink
	opts       options

	busy  atomic.Bool
	state atomic.Int32
}

func NewInstaller(host Host, resolve Resolver, downloader Downloader, applier Applier, sink events.Sink, opts ...Option) *Installer {
	if sink == nil {
		sink = events.Nop{}
	}
	return &Installer{
		host:       host,
		resolve:    resolve,
		downloader: downloader,
		applier:    applier,
		sink:       sink,
		opts:       buildOptions(opts),
	}
}

// State reports the state of the current or most recent invocation.
func (i *Installer) State() State {
	return State(i.state.Load())
}

// DownloadAndInstall only returns on failure, or when the host's Restart
// returns without error (which a real process host never does).
func (i *Installer) DownloadAndInstall(ctx context.Context) error {
	if !i.busy.CompareAndSwap(false, true) {
		return ErrInstallInProgress
	}
	defer i.busy.Store(false)

	log := i.opts.logger().With().Str("install_id", uuid.NewString()).Logger()
	log.Info().Msg("Starting update download and install")

	i.setState(StateChecking)
	current := i.host.CurrentVersion()
	feed, err := i.resolve(current)
	if err != nil {
		return i.fail(log, fmt.Errorf("%w: %w", ErrInitialization, err))
	}
	currentVer, err := version.NewVersion(current)
	if err != nil {
		return i.fail(log, fmt.Errorf("%w: current version %q: %w", ErrInitialization, current, err))
	}

	rel, err := queryFeed(ctx, feed, i.opts.requestTimeout)
	if errors.Is(err, ErrInvalidRelease) {
		return i.fail(log, err)
	}
	if err != nil {
		return i.fail(log, fmt.Errorf("%w: %w", ErrTransientFeed, err))
	}
	if rel == nil {
		return i.fail(log, ErrNoUpdate)
	}
	d, err := NewVersionDescriptor(currentVer, rel)
	if err != nil {
		return i.fail(log, err)
	}
	log = log.With().Str("new_version", d.Candidate().Original()).Logger()

	i.setState(StateDownloading)
	log.Info().Str("download_url", d.DownloadLocation().String()).Msg("Downloading update")
	artifact, err := i.download(ctx, log, d)
	if err != nil {
		return i.fail(log, fmt.Errorf("%w: %w", ErrDownload, err))
	}
	log.Info().Str("file", artifact.Path).Uint64("bytes", artifact.Size).Msg("Download complete, preparing to install")
	i.sink.Emit(events.DownloadCompleteEvent, nil)

	i.setState(StateInstalling)
	err = i.applier.Apply(ctx, artifact, d)
	discardArtifact(log, artifact)
	if err != nil {
		return i.fail(log, fmt.Errorf("%w: %w", ErrInstall, err))
	}

	i.setState(StateRestarting)
	log.Info().Msg("Update installed, restarting application")
	if err := i.host.Restart(); err != nil {
		return i.fail(log, fmt.Errorf("%w: %w", ErrRestart, err))
	}
	return nil
}

func (i *Installer) download(ctx context.Context, log zerolog.Logger, d *VersionDescriptor) (Artifact, error) {
	ctx, cancel := context.WithTimeout(ctx, i.opts.downloadTimeout)
	defer cancel()

	var downloaded uint64
	var advertised int64
	onChunk := func(n int, total int64) error {
		advertised = total
		if n <= 0 {
			return nil
		}
		downloaded += uint64(n)
		if total > 0 && downloaded > uint64(total) {
			return fmt.Errorf("%w: %d > %d bytes", errArtifactTooLarge, downloaded, total)
		}

		var known uint64
		if total > 0 {
			known = uint64(total)
		}
		p := events.NewDownloadProgress(downloaded, known)
		if pct, ok := p.Percent(); ok {
			log.Debug().Uint64("progress", pct).Uint64("downloaded", downloaded).Int64("total", total).Msg("Download progress")
		} else {
			log.Debug().Uint64("downloaded", downloaded).Msg("Download progress")
		}
		i.sink.Emit(events.DownloadProgressEvent, p)
		return nil
	}

	artifact, err := i.downloader.Download(ctx, d, onChunk)
	if err != nil {
		return Artifact{}, err
	}
	// never hand a truncated binary to the applier
	switch {
	case artifact.Size == 0:
		err = errArtifactEmpty
	case advertised > 0 && artifact.Size != uint64(advertised):
		err = fmt.Errorf("%w: got %d of %d bytes", errArtifactMismatch, artifact.Size, advertised)
	}
	if err != nil {
		discardArtifact(log, artifact)
		return Artifact{}, err
	}
	return artifact, nil
}

func (i *Installer) setState(s State) {
	i.state.Store(int32(s))
}

func (i *Installer) fail(log zerolog.Logger, err error) error {
	i.setState(StateFailed)
	log.Error().Err(err).Msg("Update install failed")
	return err
}

func discardArtifact(log zerolog.Logger, a Artifact) {
	if a.Path == "" {
		return
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("file", a.Path).Msg("Failed to remove staged update")
	}
}
