// pkg/platform/run.go - external process execution.

package platform

import (
	"bytes"
	"errors"
	"os/exec"
	"runtime"
	"syscall"
)

// CommandRunner executes external processes with hidden console windows
// and returns their exit code alongside combined output.
type CommandRunner struct{}

// Run executes command with arguments, blocking until it exits. The exit
// code is returned even on failure; err is non-nil only when the process
// could not be started or was killed by the OS.
func (CommandRunner) Run(command string, arguments []string) (int, string, error) {
	cmd := exec.Command(command, arguments...)

	// Hide window on Windows
	if runtime.GOOS == "windows" {
		cmd.SysProcAttr = &syscall.SysProcAttr{
			HideWindow: true,
		}
	}

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	err := cmd.Run()
	combined := out.String() + stderr.String()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), combined, nil
		}
		return -1, combined, err
	}
	return 0, combined, nil
}
