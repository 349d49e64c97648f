// pkg/process/process.go - running-process checks used to gate installs.

package process

import (
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/windowsadmins/remedian/pkg/logging"
)

// IsRunning checks if a specific application is currently running.
// Accepts a bare name, an exe name, or a full path.
func IsRunning(appName string) bool {
	processes, err := process.Processes()
	if err != nil {
		logging.Error("Failed to get process list", "error", err)
		return false
	}

	cleanAppName := strings.ToLower(appName)

	for _, proc := range processes {
		name, err := proc.Name()
		if err != nil {
			continue
		}
		processName := strings.ToLower(name)

		if strings.HasPrefix(cleanAppName, "/") || strings.HasPrefix(cleanAppName, "c:\\") {
			// Search by exact path
			exe, err := proc.Exe()
			if err != nil {
				continue
			}
			if strings.EqualFold(exe, appName) {
				logging.Debug("Found running app by exact path", "app", appName, "process", exe)
				return true
			}
		} else if strings.HasSuffix(cleanAppName, ".exe") {
			if processName == cleanAppName {
				logging.Debug("Found running app by exe name", "app", appName, "process", processName)
				return true
			}
		} else {
			if processName == cleanAppName || processName == cleanAppName+".exe" {
				logging.Debug("Found running app by name", "app", appName, "process", processName)
				return true
			}
		}
	}
	return false
}

// AnyRunning returns the subset of names that are currently running.
func AnyRunning(names []string) []string {
	var running []string
	for _, name := range names {
		if IsRunning(name) {
			running = append(running, name)
		}
	}
	return running
}
