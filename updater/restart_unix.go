//go:build !windows

package updater

import (
	"fmt"
	"os"
	"syscall"
)

func relaunch(exe string, args []string) error {
	argv := append([]string{exe}, args...)
	if err := syscall.Exec(exe, argv, os.Environ()); err != nil {
		return fmt.Errorf("error executing %s: %w", exe, err)
	}
	return nil
}
