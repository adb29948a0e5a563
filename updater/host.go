package updater

// ProcessHost is the running executable. Restart relaunches it with Args.
type ProcessHost struct {
	version string
	Args    []string
}

func NewProcessHost(version string, args ...string) *ProcessHost {
	return &ProcessHost{version: version, Args: args}
}

func (p *ProcessHost) CurrentVersion() string {
	return p.version
}

// Restart replaces the process image with the executable now on disk. On
// success it never returns.
func (p *ProcessHost) Restart() error {
	exe, err := executablePath()
	if err != nil {
		return err
	}
	return relaunch(exe, p.Args)
}
