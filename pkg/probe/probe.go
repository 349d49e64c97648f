// pkg/probe/probe.go - detection strategies and the first-win probe chain.
//
// A Probe is one independent strategy for discovering a fact about system
// state: a version string, a policy value, a service status. Probes are
// executed strictly in priority order (most authoritative source first)
// and the chain stops at the first success. A probe failing internally is
// recorded and skipped; it never aborts the chain.

package probe

import (
	"fmt"

	"github.com/windowsadmins/remedian/pkg/logging"
)

// Result is the outcome of a single probe run. If Succeeded is false,
// Value is empty.
type Result struct {
	Succeeded         bool
	Value             string
	Provenance        string
	Diagnostic        string
	Restricted        bool
	RestrictionReason string
}

// Failure builds a failed Result carrying a diagnostic.
func Failure(diagnostic string) Result {
	return Result{Diagnostic: diagnostic}
}

// Probe is one detection strategy. Implementations are stateless across
// invocations; they may read external state but own none.
type Probe interface {
	Name() string
	Run() Result
}

// Attempt records one executed probe and whether it won.
type Attempt struct {
	Probe     string
	Succeeded bool
}

// Detection is the merged verdict input produced by one chain run. It is
// immutable once returned.
type Detection struct {
	Found             bool
	Value             string
	Provenance        string
	Restricted        bool
	RestrictionReason string
	Tried             []Attempt
}

// RunChain executes probes in the given order, stopping at the first
// success. Tried lists every probe executed up to and including the
// winner, in order. If no probe succeeds, Found is false and no value is
// present.
func RunChain(probes []Probe) Detection {
	var detection Detection

	for _, p := range probes {
		result := runSafely(p)

		if result.Succeeded && result.Value == "" && !result.Restricted {
			// A success must carry a discovery; treat it as a probe bug.
			result = Failure(fmt.Sprintf("probe %s reported success without a value", p.Name()))
		}

		detection.Tried = append(detection.Tried, Attempt{Probe: p.Name(), Succeeded: result.Succeeded})

		if !result.Succeeded {
			logging.Debug("Probe did not succeed",
				"probe", p.Name(),
				"diagnostic", result.Diagnostic,
			)
			continue
		}

		logging.Info("Probe succeeded",
			"probe", p.Name(),
			"value", result.Value,
			"provenance", result.Provenance,
		)
		detection.Found = true
		detection.Value = result.Value
		detection.Provenance = result.Provenance
		detection.Restricted = result.Restricted
		detection.RestrictionReason = result.RestrictionReason
		return detection
	}

	logging.Info("No probe succeeded", "tried", len(detection.Tried))
	return detection
}

// runSafely converts a panicking probe into a failed Result.
func runSafely(p Probe) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Failure(fmt.Sprintf("probe panicked: %v", r))
		}
	}()
	return p.Run()
}
