//go:build windows

package launcher

import (
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

// commandLine routes batch scripts through cmd /c; executables run directly.
func commandLine(path string, args []string) (string, []string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bat", ".cmd":
		return "cmd", append([]string{"/c", path}, args...)
	default:
		return path, args
	}
}

// detachedAttrs gives the job its own console window.
func detachedAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_CONSOLE}
}

func checkRunnable(string) error {
	return nil
}
