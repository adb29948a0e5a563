package updater

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/go-version"
)

// Release is what a feed reports when a newer version exists.
type Release struct {
	Version     string
	Notes       string
	PublishedAt time.Time // zero when the feed did not say
	URL         string
	Checksum    []byte // SHA-256 of the artifact, optional
}

// Feed is a single-shot lookup of the latest release. A nil release with a
// nil error means the running version is current.
type Feed interface {
	Latest(ctx context.Context) (*Release, error)
}

// Resolver produces the feed client for the running application identity.
// Failing here is a configuration problem, never a transient one.
type Resolver func(currentVersion string) (Feed, error)

// Host is the process the updater lives in.
type Host interface {
	CurrentVersion() string
	// Restart replaces the running process with the freshly installed
	// binary. It does not return on success.
	Restart() error
}

// Artifact is a downloaded update staged on local storage.
type Artifact struct {
	Path string
	Size uint64
}

// ChunkFunc observes every chunk received while downloading. total is
// negative when the size is unknown. Returning an error aborts the download.
type ChunkFunc func(n int, total int64) error

// Downloader streams an artifact to staging storage.
type Downloader interface {
	Download(ctx context.Context, d *VersionDescriptor, onChunk ChunkFunc) (Artifact, error)
}

// Applier installs a staged artifact over the running binary.
type Applier interface {
	Apply(ctx context.Context, a Artifact, d *VersionDescriptor) error
}

// VersionDescriptor describes one available update. It is built fresh by
// every feed query and never modified afterwards.
type VersionDescriptor struct {
	current          *version.Version
	candidate        *version.Version
	notes            string
	publishedAt      time.Time
	downloadLocation *url.URL
	checksum         []byte
}

// NewVersionDescriptor validates a release against the running version.
func NewVersionDescriptor(current *version.Version, r *Release) (*VersionDescriptor, error) {
	candidate, err := version.NewVersion(r.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: version %q: %w", ErrInvalidRelease, r.Version, err)
	}
	loc, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: download url: %w", ErrInvalidRelease, err)
	}
	if !loc.IsAbs() || loc.Host == "" {
		return nil, fmt.Errorf("%w: download url %q is not absolute", ErrInvalidRelease, r.URL)
	}

	var sum []byte
	if len(r.Checksum) > 0 {
		sum = append([]byte(nil), r.Checksum...)
	}

	return &VersionDescriptor{
		current:          current,
		candidate:        candidate,
		notes:            r.Notes,
		publishedAt:      r.PublishedAt,
		downloadLocation: loc,
		checksum:         sum,
	}, nil
}

func (d *VersionDescriptor) Current() *version.Version   { return d.current }
func (d *VersionDescriptor) Candidate() *version.Version { return d.candidate }

func (d *VersionDescriptor) ReleaseNotes() (string, bool) {
	return d.notes, d.notes != ""
}

func (d *VersionDescriptor) PublishedAt() (time.Time, bool) {
	return d.publishedAt, !d.publishedAt.IsZero()
}

// DownloadLocation returns a copy; callers cannot alter the descriptor.
func (d *VersionDescriptor) DownloadLocation() *url.URL {
	u := *d.downloadLocation
	return &u
}

func (d *VersionDescriptor) Checksum() []byte {
	if d.checksum == nil {
		return nil
	}
	return append([]byte(nil), d.checksum...)
}

// UpdateInfo is the shape handed to the host UI by the check command.
type UpdateInfo struct {
	Available   bool   `json:"available"`
	Version     string `json:"version"`
	Date        string `json:"date"`
	Notes       string `json:"notes"`
	DownloadURL string `json:"downloadUrl"`
}

func (d *VersionDescriptor) Info() UpdateInfo {
	info := UpdateInfo{
		Available:   true,
		Version:     d.candidate.Original(),
		Notes:       d.notes,
		DownloadURL: d.downloadLocation.String(),
	}
	if t, ok := d.PublishedAt(); ok {
		info.Date = t.UTC().Format(time.RFC3339)
	}
	return info
}

// CheckStatus tags a CheckResult.
type CheckStatus int

const (
	NoUpdateAvailable CheckStatus = iota
	UpdateAvailable
	CheckFailed
)

func (s CheckStatus) String() string {
	switch s {
	case NoUpdateAvailable:
		return "no-update"
	case UpdateAvailable:
		return "update-available"
	case CheckFailed:
		return "check-failed"
	default:
		return fmt.Sprintf("CheckStatus(%d)", int(s))
	}
}

// CheckResult is the outcome of one Check call. Descriptor is set only for
// UpdateAvailable, Err only for CheckFailed.
type CheckResult struct {
	Status     CheckStatus
	Descriptor *VersionDescriptor
	Err        error
}
