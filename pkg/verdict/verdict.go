// pkg/verdict/verdict.go - pure classification of detection against a
// baseline.

package verdict

import (
	version "github.com/hashicorp/go-version"

	"github.com/windowsadmins/remedian/pkg/probe"
)

// Baseline is the target state a detection is judged against.
type Baseline struct {
	TargetVersion string
}

// Kind classifies the comparison outcome.
type Kind int

const (
	UpToDate Kind = iota
	Stale
	Restricted
	Absent
	Indeterminate
)

// String returns the kind's display name.
func (k Kind) String() string {
	switch k {
	case UpToDate:
		return "up to date"
	case Stale:
		return "stale"
	case Restricted:
		return "restricted"
	case Absent:
		return "absent"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// Verdict drives whether remediation is attempted. Current/Target are set
// for version comparisons, Reason for restrictions, Raw for values that
// could not be compared.
type Verdict struct {
	Kind    Kind
	Current string
	Target  string
	Reason  string
	Raw     string
}

// Resolve classifies a detection against the baseline. It is pure and
// total: any representable input, including empty and malformed strings,
// maps to a verdict without side effects.
func Resolve(detection probe.Detection, baseline Baseline) Verdict {
	if detection.Restricted {
		return Verdict{Kind: Restricted, Reason: detection.RestrictionReason}
	}
	if !detection.Found {
		return Verdict{Kind: Absent}
	}

	// No target configured means the item is tracked for presence only.
	if baseline.TargetVersion == "" {
		return Verdict{Kind: UpToDate, Current: detection.Value}
	}

	current, errCurrent := version.NewVersion(detection.Value)
	target, errTarget := version.NewVersion(baseline.TargetVersion)
	if errCurrent != nil || errTarget != nil {
		return Verdict{Kind: Indeterminate, Raw: detection.Value, Target: baseline.TargetVersion}
	}

	if current.LessThan(target) {
		return Verdict{
			Kind:    Stale,
			Current: detection.Value,
			Target:  baseline.TargetVersion,
		}
	}

	// Equal or newer both count as current; a dev build ahead of the
	// baseline is never flagged stale.
	return Verdict{
		Kind:    UpToDate,
		Current: detection.Value,
		Target:  baseline.TargetVersion,
	}
}
