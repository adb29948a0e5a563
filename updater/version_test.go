package updater

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	p := Detect()
	assert.Equal(t, runtime.GOOS, p.OS)
	assert.Equal(t, runtime.GOARCH, p.Arch)
}

func TestPlatformKey(t *testing.T) {
	tests := []struct {
		platform Platform
		arch     string
		key      string
	}{
		{Platform{OS: "linux", Arch: "amd64"}, "x86_64", "linux-x86_64"},
		{Platform{OS: "darwin", Arch: "arm64"}, "aarch64", "darwin-aarch64"},
		{Platform{OS: "windows", Arch: "386"}, "i686", "windows-i686"},
		{Platform{OS: "linux", Arch: "arm"}, "armv7", "linux-armv7"},
		{Platform{OS: "freebsd", Arch: "riscv64"}, "riscv64", "freebsd-riscv64"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.platform.OS, tt.platform.Target())
			assert.Equal(t, tt.arch, tt.platform.FeedArch())
			assert.Equal(t, tt.key, tt.platform.Key())
		})
	}
}
