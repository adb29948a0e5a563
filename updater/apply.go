package updater

import (
	"context"
	"crypto"
	_ "crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/selfupdate"
	"github.com/waldirborbajr/autoupdate/logger"
)

// SelfApplier replaces an executable with a downloaded binary, keeping the
// previous one next to it as <target>.bak.
type SelfApplier struct {
	targetPath string
}

// NewSelfApplier targets the given file; an empty path means the running executable.
func NewSelfApplier(targetPath string) *SelfApplier {
	return &SelfApplier{targetPath: targetPath}
}

func (s *SelfApplier) Apply(ctx context.Context, a Artifact, d *VersionDescriptor) error {
	log := logger.GetLogger()

	if a.Path == "" {
		return fmt.Errorf("empty download path")
	}
	if isArchiveFile(a.Path) {
		return fmt.Errorf("downloaded file appears to be an archive, not a binary")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	target, err := s.resolveTarget()
	if err != nil {
		return err
	}

	opts := selfupdate.Options{
		TargetPath:  target,
		OldSavePath: target + ".bak",
	}
	if info, err := os.Stat(target); err == nil {
		opts.TargetMode = info.Mode()
	}
	if sum := d.Checksum(); len(sum) > 0 {
		opts.Checksum = sum
		opts.Hash = crypto.SHA256
	}
	if err := opts.CheckPermissions(); err != nil {
		return fmt.Errorf("cannot write executable %s: %w", target, err)
	}
	if err := os.Remove(opts.OldSavePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Error().Err(err).Str("backup", opts.OldSavePath).Msg("Failed to remove previous backup")
		return fmt.Errorf("cannot remove previous backup %s: %w", opts.OldSavePath, err)
	}

	in, err := os.Open(a.Path)
	if err != nil {
		return fmt.Errorf("error opening downloaded file: %w", err)
	}
	defer func() { _ = in.Close() }()

	if err := selfupdate.Apply(in, opts); err != nil {
		if rerr := selfupdate.RollbackError(err); rerr != nil {
			log.Error().Err(rerr).Str("path", target).Msg("Rollback after failed update did not succeed")
		}
		return fmt.Errorf("error replacing executable: %w", err)
	}

	log.Info().Str("path", target).Str("backup", opts.OldSavePath).Msg("Update installed")
	return nil
}

// CheckPermissions reports whether the target executable can be replaced.
func (s *SelfApplier) CheckPermissions() error {
	target, err := s.resolveTarget()
	if err != nil {
		return err
	}
	opts := selfupdate.Options{TargetPath: target}
	return opts.CheckPermissions()
}

func (s *SelfApplier) resolveTarget() (string, error) {
	if s.targetPath != "" {
		return s.targetPath, nil
	}
	return executablePath()
}

func executablePath() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("error resolving executable path: %w", err)
	}
	exePath, err = filepath.EvalSymlinks(exePath)
	if err != nil {
		return "", fmt.Errorf("error resolving symlinks: %w", err)
	}
	return exePath, nil
}

func isArchiveFile(path string) bool {
	name := strings.ToLower(path)
	return strings.HasSuffix(name, ".zip") ||
		strings.HasSuffix(name, ".tar.gz") ||
		strings.HasSuffix(name, ".tgz") ||
		strings.HasSuffix(name, ".tar")
}
