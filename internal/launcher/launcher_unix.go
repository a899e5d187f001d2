//go:build !windows

package launcher

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

func commandLine(path string, args []string) (string, []string) {
	return path, args
}

// detachedAttrs puts the job in its own process group so terminal signals
// aimed at contentpub do not reach it.
func detachedAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func checkRunnable(path string) error {
	if err := unix.Access(path, unix.X_OK); err != nil {
		return fmt.Errorf("launch %s: not executable: %w", path, err)
	}
	return nil
}
