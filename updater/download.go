package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/waldirborbajr/autoupdate/logger"
)

const downloadChunkSize = 32 * 1024

// HTTPDownloader streams artifacts into a staging directory.
type HTTPDownloader struct {
	client    *http.Client
	dir       string
	userAgent string
}

func NewHTTPDownloader(dir, userAgent string) *HTTPDownloader {
	return &HTTPDownloader{
		client:    &http.Client{},
		dir:       dir,
		userAgent: userAgent,
	}
}

// Download writes the artifact to the staging directory, calling onChunk for
// every block read. A partial file is removed on failure.
func (h *HTTPDownloader) Download(ctx context.Context, d *VersionDescriptor, onChunk ChunkFunc) (Artifact, error) {
	log := logger.GetLogger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.DownloadLocation().String(), nil)
	if err != nil {
		return Artifact{}, fmt.Errorf("error creating download request: %w", err)
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := h.client.Do(req)
	if err != nil {
		return Artifact{}, fmt.Errorf("error fetching download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Artifact{}, fmt.Errorf("unexpected status code when downloading: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("error creating download directory: %w", err)
	}

	fname := determineFilename(resp.Request.URL.Path)
	destPath := filepath.Join(h.dir, fname)

	f, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Artifact{}, fmt.Errorf("error creating destination file: %w", err)
	}

	n, err := copyChunks(f, resp.Body, resp.ContentLength, onChunk)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("error closing destination file: %w", closeErr)
	}
	if err != nil {
		if rmErr := os.Remove(destPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Warn().Err(rmErr).Str("file", destPath).Msg("Failed to remove partial download")
		}
		return Artifact{}, err
	}

	log.Info().Str("file", destPath).Uint64("bytes", n).Msg("Downloaded update file")
	return Artifact{Path: destPath, Size: n}, nil
}

func copyChunks(dst io.Writer, src io.Reader, total int64, onChunk ChunkFunc) (uint64, error) {
	var written uint64
	buf := make([]byte, downloadChunkSize)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("error writing to file: %w", err)
			}
			written += uint64(n)
			if onChunk != nil {
				if err := onChunk(n, total); err != nil {
					return written, err
				}
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("error reading download stream: %w", readErr)
		}
	}
}

func determineFilename(p string) string {
	// Extract the last path component from the URL path.
	base := path.Base(p)

	// Generate a safe fallback name if the base is empty or clearly invalid.
	generated := fmt.Sprintf("update-%d.bin", time.Now().Unix())
	if base == "" || base == "." || base == "/" {
		return generated
	}

	// Ensure the filename is a single component without directory traversal.
	if strings.Contains(base, "/") || strings.Contains(base, "\\") || strings.Contains(base, "..") {
		return generated
	}

	return base
}
