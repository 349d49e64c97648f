// pkg/report/report.go - renders the run result and computes the process
// exit status. Read-only over the engine's outputs; no influence on
// control flow.

package report

import (
	"fmt"
	"strings"

	"github.com/windowsadmins/remedian/pkg/logging"
	"github.com/windowsadmins/remedian/pkg/probe"
	"github.com/windowsadmins/remedian/pkg/remediate"
	"github.com/windowsadmins/remedian/pkg/verdict"
)

// RunResult is the complete outcome of one reconciliation pass, assembled
// by the driver and threaded through explicitly.
type RunResult struct {
	Item      string
	Detection probe.Detection
	Verdict   verdict.Verdict
	Outcome   remediate.Outcome
}

// ExitCode maps the run result to the process exit status: 0 when the
// item is current or remediation succeeded, 1 otherwise.
func ExitCode(r RunResult) int {
	if r.Verdict.Kind == verdict.UpToDate {
		return 0
	}
	if r.Outcome.Succeeded {
		return 0
	}
	return 1
}

// Render prints the detection trail, the verdict, and the remediation
// outcome as structured text.
func Render(logger *logging.Logger, r RunResult) {
	logger.Printf("")
	logger.Printf("Results for %s:", r.Item)
	logger.Printf("")

	logger.Printf("%-24s %s", "Probe", "Result")
	logger.Printf("%s", strings.Repeat("-", 40))
	for _, attempt := range r.Detection.Tried {
		state := "failed"
		if attempt.Succeeded {
			state = "succeeded"
		}
		logger.Printf("%-24s %s", attempt.Probe, state)
	}
	logger.Printf("")

	if r.Detection.Found {
		logger.Printf("Detected: %s (via %s)", r.Detection.Value, r.Detection.Provenance)
	} else {
		logger.Printf("Detected: not found")
	}

	logger.Printf("Verdict:  %s", describeVerdict(r.Verdict))

	switch {
	case !r.Outcome.Attempted && r.Outcome.FailureReason != "":
		logger.Warning("Remediation not attempted: %s", r.Outcome.FailureReason)
	case !r.Outcome.Attempted:
		logger.Printf("Remediation: not needed")
	case r.Outcome.Succeeded:
		logger.Success("Remediation succeeded: applied %s", describeArtifact(r))
	default:
		logger.Error("Remediation failed: %s", r.Outcome.FailureReason)
	}
}

func describeVerdict(v verdict.Verdict) string {
	switch v.Kind {
	case verdict.Stale:
		return fmt.Sprintf("stale (current %s, target %s)", v.Current, v.Target)
	case verdict.Restricted:
		return fmt.Sprintf("restricted (%s)", v.Reason)
	case verdict.Indeterminate:
		return fmt.Sprintf("indeterminate (raw value %q)", v.Raw)
	case verdict.UpToDate:
		if v.Target != "" {
			return fmt.Sprintf("up to date (current %s, target %s)", v.Current, v.Target)
		}
		return fmt.Sprintf("up to date (current %s)", v.Current)
	default:
		return v.Kind.String()
	}
}

func describeArtifact(r RunResult) string {
	if r.Outcome.Applied == nil {
		return "artifact"
	}
	return fmt.Sprintf("%s %s", r.Outcome.Applied.Kind, r.Outcome.Applied.Location)
}
