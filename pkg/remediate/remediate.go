// pkg/remediate/remediate.go - the privilege-gated remediation pipeline.
//
// Remediation runs only for a fixable verdict (stale or restricted) and
// only under elevation. Restrictions are repaired in place in the
// registry, with a delete fallback when the corrective write does not
// stick. Stale versions go through Acquire then Install. Either way the
// run ends with a verified success or an outcome that names exactly what
// failed.

package remediate

import (
	"fmt"
	"strings"

	"github.com/windowsadmins/remedian/pkg/config"
	"github.com/windowsadmins/remedian/pkg/download"
	"github.com/windowsadmins/remedian/pkg/installer"
	"github.com/windowsadmins/remedian/pkg/logging"
	"github.com/windowsadmins/remedian/pkg/process"
	"github.com/windowsadmins/remedian/pkg/verdict"
)

// Registry is the mutation surface policy remediation needs. The platform
// adapter satisfies it; tests substitute fakes.
type Registry interface {
	ReadInteger(keyPath, valueName string) (uint64, error)
	WriteDword(keyPath, valueName string, value uint32) error
	WriteString(keyPath, valueName, value string) error
	DeleteValue(keyPath, valueName string) error
}

// Acquirer fetches the remediation artifact. *download.Acquirer is the
// production implementation.
type Acquirer interface {
	Acquire() (*download.Acquisition, error)
}

// PolicyTarget names the registry value whose state restricts the item
// and the value that unrestricts it.
type PolicyTarget struct {
	KeyPath      string
	ValueName    string
	DesiredValue uint32
}

// Outcome reports what the pipeline did. Attempted is false only when the
// entry guard declined (wrong verdict kind, or elevation missing).
type Outcome struct {
	Attempted     bool
	Succeeded     bool
	Applied       *installer.Artifact
	FailureReason string
}

// Pipeline wires the collaborators for one remediation attempt.
type Pipeline struct {
	IsElevated        bool
	ItemName          string
	TargetVersion     string
	Registry          Registry
	Policy            PolicyTarget
	Acquirer          Acquirer
	Runner            installer.Runner
	BlockingProcesses []string

	// abstracted for testing
	RunningProcs func(names []string) []string
}

// Remediate applies the branch matching the verdict kind and returns the
// outcome. It never panics; every failure path carries a reason.
func (p *Pipeline) Remediate(v verdict.Verdict) Outcome {
	switch v.Kind {
	case verdict.Restricted, verdict.Stale:
		// fixable
	default:
		return Outcome{}
	}

	if !p.IsElevated {
		logging.Warn("Remediation requires elevation", "item", p.ItemName, "verdict", v.Kind.String())
		return Outcome{FailureReason: "requires elevation"}
	}

	if v.Kind == verdict.Restricted {
		return p.remediatePolicy()
	}
	return p.remediatePackage()
}

// remediatePolicy writes the corrected policy value in place and verifies
// by re-reading. If the write does not stick, the restricting value is
// removed entirely instead.
func (p *Pipeline) remediatePolicy() Outcome {
	outcome := Outcome{Attempted: true}
	artifact := &installer.Artifact{
		Kind:     installer.RegistryValue,
		Location: p.Policy.KeyPath + `\` + p.Policy.ValueName,
	}

	if p.Policy.KeyPath == "" || p.Policy.ValueName == "" {
		outcome.FailureReason = "no policy target configured"
		return outcome
	}

	logging.Info("Correcting policy value",
		"key", p.Policy.KeyPath,
		"value", p.Policy.ValueName,
		"desired", p.Policy.DesiredValue,
	)

	writeErr := p.Registry.WriteDword(p.Policy.KeyPath, p.Policy.ValueName, p.Policy.DesiredValue)
	if writeErr == nil {
		if val, err := p.Registry.ReadInteger(p.Policy.KeyPath, p.Policy.ValueName); err == nil && uint32(val) == p.Policy.DesiredValue {
			logging.Info("Policy value corrected and verified",
				"key", p.Policy.KeyPath, "value", p.Policy.ValueName)
			outcome.Succeeded = true
			outcome.Applied = artifact
			return outcome
		}
	}

	// The corrective write did not stick; removing the value entirely
	// also lifts the restriction.
	logging.Warn("Policy write did not verify, removing restricting value",
		"key", p.Policy.KeyPath,
		"value", p.Policy.ValueName,
		"write_error", writeErr,
	)
	if err := p.Registry.DeleteValue(p.Policy.KeyPath, p.Policy.ValueName); err != nil {
		outcome.FailureReason = fmt.Sprintf("policy write and delete both failed at %s\\%s: %v",
			p.Policy.KeyPath, p.Policy.ValueName, err)
		return outcome
	}
	if _, err := p.Registry.ReadInteger(p.Policy.KeyPath, p.Policy.ValueName); err == nil {
		outcome.FailureReason = fmt.Sprintf("restricting value still present after delete at %s\\%s",
			p.Policy.KeyPath, p.Policy.ValueName)
		return outcome
	}

	logging.Info("Restricting policy value removed",
		"key", p.Policy.KeyPath, "value", p.Policy.ValueName)
	outcome.Succeeded = true
	outcome.Applied = artifact
	return outcome
}

// remediatePackage fetches the newer version and installs it by format.
func (p *Pipeline) remediatePackage() Outcome {
	outcome := Outcome{Attempted: true}

	runningProcs := p.RunningProcs
	if runningProcs == nil {
		runningProcs = process.AnyRunning
	}
	if running := runningProcs(p.BlockingProcesses); len(running) > 0 {
		outcome.FailureReason = fmt.Sprintf("blocked by running processes: %s",
			strings.Join(running, ", "))
		logging.Warn("Install blocked by running processes",
			"item", p.ItemName, "processes", running)
		return outcome
	}

	acquisition, err := p.Acquirer.Acquire()
	if err != nil {
		outcome.FailureReason = fmt.Sprintf("acquisition failed: %v", err)
		return outcome
	}
	defer acquisition.Cleanup()

	artifact := installer.Artifact{
		Kind:      installer.KindForPath(acquisition.Path),
		Location:  acquisition.Path,
		SizeBytes: acquisition.SizeBytes,
	}
	outcome.Applied = &artifact

	ins := &installer.Installer{Runner: p.Runner, ScratchDir: acquisition.Dir()}
	if err := ins.Install(artifact); err != nil {
		outcome.FailureReason = err.Error()
		return outcome
	}

	p.recordInstalledVersion()
	outcome.Succeeded = true
	return outcome
}

// recordInstalledVersion writes the installed version back to the managed
// key so the highest-priority probe wins on the next pass. Failure here
// is non-fatal: the install itself completed.
func (p *Pipeline) recordInstalledVersion() {
	if p.TargetVersion == "" {
		return
	}
	keyPath := config.ManagedKeyPath + `\` + p.ItemName
	if err := p.Registry.WriteString(keyPath, "Version", p.TargetVersion); err != nil {
		logging.Warn("Failed to record installed version",
			"item", p.ItemName, "version", p.TargetVersion, "error", err)
		return
	}
	logging.Info("Recorded installed version",
		"item", p.ItemName, "version", p.TargetVersion)
}
