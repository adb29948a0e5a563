package updater

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stage(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o755))
	return p
}

func TestSelfApplierReplacesTargetAndKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	target := stage(t, dir, "app", "old build")
	staged := stage(t, t.TempDir(), "app-1.1.0", "new build")

	sum := sha256.Sum256([]byte("new build"))
	rel := &Release{Version: "1.1.0", URL: "https://dl.example.com/app", Checksum: sum[:]}

	err := NewSelfApplier(target).Apply(context.Background(), Artifact{Path: staged, Size: 9}, mustDescriptor(t, "1.0.0", rel))
	require.NoError(t, err)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new build", string(got))

	backup, err := os.ReadFile(target + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "old build", string(backup))
}

func TestSelfApplierChecksumMismatchLeavesTarget(t *testing.T) {
	dir := t.TempDir()
	target := stage(t, dir, "app", "old build")
	staged := stage(t, t.TempDir(), "app-1.1.0", "tampered")

	sum := sha256.Sum256([]byte("new build"))
	rel := &Release{Version: "1.1.0", URL: "https://dl.example.com/app", Checksum: sum[:]}

	err := NewSelfApplier(target).Apply(context.Background(), Artifact{Path: staged}, mustDescriptor(t, "1.0.0", rel))
	require.Error(t, err)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "old build", string(got))
}

func TestSelfApplierRejectsArchives(t *testing.T) {
	target := stage(t, t.TempDir(), "app", "old build")
	d := mustDescriptor(t, "1.0.0", release("1.1.0"))

	for _, name := range []string{"app.zip", "app.tar.gz", "APP.TGZ", "app.tar"} {
		t.Run(name, func(t *testing.T) {
			err := NewSelfApplier(target).Apply(context.Background(), Artifact{Path: "/tmp/" + name}, d)
			assert.ErrorContains(t, err, "archive")
		})
	}
}

func TestSelfApplierHonorsCancelledContext(t *testing.T) {
	target := stage(t, t.TempDir(), "app", "old build")
	staged := stage(t, t.TempDir(), "app-1.1.0", "new build")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSelfApplier(target).Apply(ctx, Artifact{Path: staged}, mustDescriptor(t, "1.0.0", release("1.1.0")))

	assert.ErrorIs(t, err, context.Canceled)
	got, _ := os.ReadFile(target)
	assert.Equal(t, "old build", string(got))
}

func TestSelfApplierEmptyPath(t *testing.T) {
	err := NewSelfApplier("").Apply(context.Background(), Artifact{}, mustDescriptor(t, "1.0.0", release("1.1.0")))
	assert.Error(t, err)
}

func TestSelfApplierCheckPermissions(t *testing.T) {
	target := stage(t, t.TempDir(), "app", "old build")
	assert.NoError(t, NewSelfApplier(target).CheckPermissions())
}

func TestSelfApplierStopsWhenOldBackupCannotBeRemoved(t *testing.T) {
	dir := t.TempDir()
	target := stage(t, dir, "app", "old build")
	// a non-empty directory in the backup slot cannot be removed
	require.NoError(t, os.Mkdir(target+".bak", 0o755))
	stage(t, target+".bak", "keep", "x")
	staged := stage(t, t.TempDir(), "app-1.1.0", "new build")

	err := NewSelfApplier(target).Apply(context.Background(), Artifact{Path: staged}, mustDescriptor(t, "1.0.0", release("1.1.0")))

	assert.ErrorContains(t, err, "backup")
	got, readErr := os.ReadFile(target)
	require.NoError(t, readErr)
	assert.Equal(t, "old build", string(got))
}
