package updater

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	version    string
	restartErr error

	mu       sync.Mutex
	restarts int
}

func (h *fakeHost) CurrentVersion() string { return h.version }

func (h *fakeHost) Restart() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.restarts++
	return h.restartErr
}

func (h *fakeHost) Restarts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.restarts
}

type feedResponse struct {
	release *Release
	err     error
}

// fakeFeed replays responses in order, repeating the last one.
type fakeFeed struct {
	mu        sync.Mutex
	responses []feedResponse
	calls     int
}

func (f *fakeFeed) Latest(ctx context.Context) (*Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	r := f.responses[idx]
	return r.release, r.err
}

func (f *fakeFeed) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func resolverFor(feed Feed) Resolver {
	return func(string) (Feed, error) { return feed, nil }
}

type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

func (s *sleepRecorder) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.sleeps...)
}

func release(v string) *Release {
	return &Release{
		Version: v,
		Notes:   "bug fixes",
		URL:     "https://updates.example.com/app-" + v,
	}
}

func mustDescriptor(t *testing.T, current string, r *Release) *VersionDescriptor {
	t.Helper()
	d, err := NewVersionDescriptor(version.Must(version.NewVersion(current)), r)
	require.NoError(t, err)
	return d
}
