package updater

import "runtime"

// Platform identifies the build an artifact must match.
type Platform struct {
	OS   string
	Arch string
}

// Detect returns the current platform (OS and architecture)
func Detect() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// Target is the operating system name used in feed manifests.
func (p Platform) Target() string {
	return p.OS
}

// FeedArch maps Go architecture names to the ones release manifests use.
func (p Platform) FeedArch() string {
	switch p.Arch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "i686"
	case "arm":
		return "armv7"
	default:
		return p.Arch
	}
}

// Key is the manifest "platforms" entry for this build, e.g. "linux-x86_64".
func (p Platform) Key() string {
	return p.Target() + "-" + p.FeedArch()
}
