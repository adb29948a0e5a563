package updater

import "errors"

var (
	// ErrInitialization means the feed client could not be resolved. Not retried.
	ErrInitialization = errors.New("updater initialization failed")
	// ErrTransientFeed wraps network or feed failures during a query.
	ErrTransientFeed = errors.New("update check failed")
	// ErrInvalidRelease means the feed answered with unusable metadata.
	ErrInvalidRelease = errors.New("invalid release metadata")
	// ErrNoUpdate is returned by the installer when there is nothing to install.
	ErrNoUpdate = errors.New("no update available")
	// ErrDownload means the artifact stream was interrupted.
	ErrDownload = errors.New("update download failed")
	// ErrInstall means the platform apply step failed; the running binary is unchanged.
	ErrInstall = errors.New("update install failed")
	// ErrRestart means the update was installed but the process could not be relaunched.
	ErrRestart = errors.New("restart after update failed")
	// ErrInstallInProgress rejects overlapping installer invocations.
	ErrInstallInProgress = errors.New("an update install is already in progress")
)
