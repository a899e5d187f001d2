package launcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrLaunchNotFound indicates the executable or script does not exist. It
// wraps fs.ErrNotExist.
var ErrLaunchNotFound = fmt.Errorf("launch target not found: %w", fs.ErrNotExist)

// Spec describes one external job invocation.
type Spec struct {
	// Path is the executable or batch script.
	Path string
	Args []string
	// Dir is the working directory for this launch only. Empty means the
	// directory containing Path.
	Dir string
}

// Process is a started external job.
type Process struct {
	cmd  *exec.Cmd
	path string
}

// Launch checks that spec.Path exists and starts it detached from the
// caller's console. It does not wait for the process.
func Launch(ctx context.Context, spec Spec) (*Process, error) {
	path := strings.TrimSpace(spec.Path)
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrLaunchNotFound)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLaunchNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("launch %s: path is a directory", path)
	}
	if err := checkRunnable(path); err != nil {
		return nil, err
	}

	dir := strings.TrimSpace(spec.Dir)
	if dir == "" {
		dir = filepath.Dir(path)
	}

	name, args := commandLine(path, spec.Args)
	// The job outlives cancellation of the launching context; it is owned by
	// its own console and only observed through Wait.
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.SysProcAttr = detachedAttrs()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", path, err)
	}
	return &Process{cmd: cmd, path: path}, nil
}

// PID returns the operating system process id.
func (p *Process) PID() int {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Path returns the launched executable or script.
func (p *Process) Path() string {
	if p == nil {
		return ""
	}
	return p.path
}

// Wait blocks until the process exits and returns its exit code. A non-nil
// error means the exit status could not be observed.
func (p *Process) Wait() (int, error) {
	if p == nil || p.cmd == nil {
		return -1, errors.New("wait: process not started")
	}
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// -1 when terminated by a signal.
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("wait %s: %w", p.path, err)
}
