package report

import (
	"testing"

	"github.com/windowsadmins/remedian/pkg/remediate"
	"github.com/windowsadmins/remedian/pkg/verdict"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name    string
		kind    verdict.Kind
		outcome remediate.Outcome
		want    int
	}{
		{"up to date", verdict.UpToDate, remediate.Outcome{}, 0},
		{"stale and remediated", verdict.Stale, remediate.Outcome{Attempted: true, Succeeded: true}, 0},
		{"restricted and remediated", verdict.Restricted, remediate.Outcome{Attempted: true, Succeeded: true}, 0},
		{"stale and failed", verdict.Stale, remediate.Outcome{Attempted: true, FailureReason: "exit 1603"}, 1},
		{"stale not attempted", verdict.Stale, remediate.Outcome{FailureReason: "requires elevation"}, 1},
		{"restricted unremediated", verdict.Restricted, remediate.Outcome{}, 1},
		{"absent", verdict.Absent, remediate.Outcome{}, 1},
		{"indeterminate", verdict.Indeterminate, remediate.Outcome{}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := RunResult{Verdict: verdict.Verdict{Kind: tc.kind}, Outcome: tc.outcome}
			if got := ExitCode(r); got != tc.want {
				t.Errorf("ExitCode = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDescribeVerdict(t *testing.T) {
	tests := []struct {
		v    verdict.Verdict
		want string
	}{
		{verdict.Verdict{Kind: verdict.Stale, Current: "2.46.0", Target: "2.47.1"}, "stale (current 2.46.0, target 2.47.1)"},
		{verdict.Verdict{Kind: verdict.Restricted, Reason: "policy Disabled=1"}, "restricted (policy Disabled=1)"},
		{verdict.Verdict{Kind: verdict.Indeterminate, Raw: "weird"}, `indeterminate (raw value "weird")`},
		{verdict.Verdict{Kind: verdict.UpToDate, Current: "2.47.1", Target: "2.47.1"}, "up to date (current 2.47.1, target 2.47.1)"},
		{verdict.Verdict{Kind: verdict.UpToDate, Current: "2.47.1"}, "up to date (current 2.47.1)"},
		{verdict.Verdict{Kind: verdict.Absent}, "absent"},
	}
	for _, tc := range tests {
		if got := describeVerdict(tc.v); got != tc.want {
			t.Errorf("describeVerdict(%+v) = %q, want %q", tc.v, got, tc.want)
		}
	}
}
