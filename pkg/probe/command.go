// pkg/probe/command.go - command execution probe.

package probe

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Runner executes an external process and reports its exit code and
// combined output.
type Runner interface {
	Run(command string, arguments []string) (int, string, error)
}

var versionToken = regexp.MustCompile(`\d+(?:\.\d+)+`)

// CommandProbe runs the tracked binary with its version arguments and
// extracts the first version-shaped token from the output. Least
// authoritative: output formats drift between releases.
type CommandProbe struct {
	Path   string
	Args   []string
	Runner Runner
}

func (p CommandProbe) Name() string { return "command" }

func (p CommandProbe) Run() Result {
	if p.Path == "" {
		return Failure("no binary path configured")
	}
	if _, err := os.Stat(p.Path); err != nil {
		return Failure(fmt.Sprintf("binary not present: %v", err))
	}

	exitCode, output, err := p.Runner.Run(p.Path, p.Args)
	if err != nil {
		return Failure(fmt.Sprintf("failed to run %s: %v", p.Path, err))
	}
	if exitCode != 0 {
		return Failure(fmt.Sprintf("%s %s exited with code %d",
			p.Path, strings.Join(p.Args, " "), exitCode))
	}

	token := versionToken.FindString(output)
	if token == "" {
		return Failure(fmt.Sprintf("no version token in output of %s", p.Path))
	}
	return Result{
		Succeeded:  true,
		Value:      token,
		Provenance: fmt.Sprintf("%s %s", p.Path, strings.Join(p.Args, " ")),
	}
}
