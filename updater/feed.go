package updater

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/waldirborbajr/autoupdate/logger"
)

// manifest is the JSON document served by the release feed. Either the
// top-level url or a per-platform entry names the artifact.
type manifest struct {
	Version   string                      `json:"version"`
	Notes     string                      `json:"notes"`
	PubDate   string                      `json:"pub_date"`
	URL       string                      `json:"url"`
	SHA256    string                      `json:"sha256"`
	Platforms map[string]platformManifest `json:"platforms"`
}

type platformManifest struct {
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
}

// HTTPFeed queries a JSON release manifest over HTTP. It decides version
// ordering itself, so callers only see "newer release" or "nothing".
type HTTPFeed struct {
	endpoint  string
	current   *version.Version
	platform  Platform
	client    *http.Client
	userAgent string
}

// NewHTTPResolver returns a Resolver building HTTPFeed clients for endpoint.
// The endpoint may contain {{current_version}}, {{target}} and {{arch}}.
func NewHTTPResolver(endpoint, userAgent string) Resolver {
	return func(currentVersion string) (Feed, error) {
		endpoint := strings.TrimSpace(endpoint)
		if endpoint == "" {
			return nil, fmt.Errorf("no update endpoint configured")
		}
		current, err := version.NewVersion(currentVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid current version %q: %w", currentVersion, err)
		}
		f := &HTTPFeed{
			endpoint:  endpoint,
			current:   current,
			platform:  Detect(),
			client:    &http.Client{},
			userAgent: userAgent,
		}
		u, err := url.Parse(f.renderEndpoint())
		if err != nil {
			return nil, fmt.Errorf("invalid update endpoint: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("invalid update endpoint: unsupported scheme %q", u.Scheme)
		}
		return f, nil
	}
}

func (f *HTTPFeed) renderEndpoint() string {
	return strings.NewReplacer(
		"{{current_version}}", f.current.Original(),
		"{{target}}", f.platform.Target(),
		"{{arch}}", f.platform.FeedArch(),
	).Replace(f.endpoint)
}

func (f *HTTPFeed) Latest(ctx context.Context) (*Release, error) {
	log := logger.GetLogger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.renderEndpoint(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while checking update: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	var m manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("error decoding update manifest: %w", err)
	}

	log.Debug().Str("remote_version", m.Version).Str("platform", f.platform.Key()).Msg("Update manifest retrieved")

	remote, err := version.NewVersion(m.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: version %q in manifest: %w", ErrInvalidRelease, m.Version, err)
	}
	if !remote.GreaterThan(f.current) {
		return nil, nil
	}

	rel := &Release{Version: m.Version, Notes: m.Notes, URL: m.URL}
	sum := m.SHA256
	if p, ok := m.Platforms[f.platform.Key()]; ok && p.URL != "" {
		rel.URL = p.URL
		sum = p.SHA256
	}
	if rel.URL == "" {
		return nil, fmt.Errorf("%w: no artifact for platform %s in release %s", ErrInvalidRelease, f.platform.Key(), m.Version)
	}
	if sum != "" {
		b, err := hex.DecodeString(strings.TrimSpace(sum))
		if err != nil {
			return nil, fmt.Errorf("%w: sha256 in manifest: %w", ErrInvalidRelease, err)
		}
		rel.Checksum = b
	}
	if m.PubDate != "" {
		t, err := time.Parse(time.RFC3339, m.PubDate)
		if err != nil {
			log.Warn().Err(err).Str("pub_date", m.PubDate).Msg("Ignoring unparsable release date")
		} else {
			rel.PublishedAt = t
		}
	}
	return rel, nil
}
