//go:build windows

package updater

import (
	"fmt"
	"os"
	"os/exec"
)

// Windows cannot replace a running image in place, so start a new process
// and leave.
func relaunch(exe string, args []string) error {
	cmd := exec.Command(exe, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error starting %s: %w", exe, err)
	}
	os.Exit(0)
	return nil
}
