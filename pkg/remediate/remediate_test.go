package remediate

import (
	"errors"
	"strings"
	"testing"

	"github.com/windowsadmins/remedian/pkg/download"
	"github.com/windowsadmins/remedian/pkg/installer"
	"github.com/windowsadmins/remedian/pkg/verdict"
)

// memRegistry tracks dword and string values per key path and value name.
// sticky makes WriteDword report success without changing anything, to
// exercise the delete fallback.
type memRegistry struct {
	dwords  map[string]uint32
	strings map[string]string

	sticky    bool
	deleteErr error
}

func newMemRegistry() *memRegistry {
	return &memRegistry{dwords: map[string]uint32{}, strings: map[string]string{}}
}

func (m *memRegistry) ReadInteger(keyPath, valueName string) (uint64, error) {
	if v, ok := m.dwords[keyPath+"!"+valueName]; ok {
		return uint64(v), nil
	}
	return 0, errors.New("value not found")
}

func (m *memRegistry) WriteDword(keyPath, valueName string, value uint32) error {
	if m.sticky {
		return nil
	}
	m.dwords[keyPath+"!"+valueName] = value
	return nil
}

func (m *memRegistry) WriteString(keyPath, valueName, value string) error {
	m.strings[keyPath+"!"+valueName] = value
	return nil
}

func (m *memRegistry) DeleteValue(keyPath, valueName string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.dwords, keyPath+"!"+valueName)
	return nil
}

type fakeAcquirer struct {
	acquisition *download.Acquisition
	err         error
	called      bool
}

func (f *fakeAcquirer) Acquire() (*download.Acquisition, error) {
	f.called = true
	return f.acquisition, f.err
}

type recordingRunner struct {
	exitCode int
	calls    int
}

func (r *recordingRunner) Run(command string, arguments []string) (int, string, error) {
	r.calls++
	return r.exitCode, "", nil
}

func noProcs([]string) []string { return nil }

func TestRemediateGuards(t *testing.T) {
	tests := []struct {
		name       string
		kind       verdict.Kind
		elevate    bool
		wantReason bool
	}{
		{"up to date", verdict.UpToDate, true, false},
		{"absent", verdict.Absent, true, false},
		{"indeterminate", verdict.Indeterminate, true, false},
		{"stale without elevation", verdict.Stale, false, true},
		{"restricted without elevation", verdict.Restricted, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			acq := &fakeAcquirer{}
			p := &Pipeline{
				IsElevated:   tc.elevate,
				ItemName:     "Git",
				Registry:     newMemRegistry(),
				Acquirer:     acq,
				RunningProcs: noProcs,
			}
			out := p.Remediate(verdict.Verdict{Kind: tc.kind})
			if out.Attempted {
				t.Error("pipeline proceeded past the entry guard")
			}
			if out.Succeeded {
				t.Error("declined remediation reported success")
			}
			if tc.wantReason && out.FailureReason == "" {
				t.Error("missing elevation carries no reason")
			}
			if !tc.wantReason && out.FailureReason != "" {
				t.Errorf("non-fixable verdict carries reason %q", out.FailureReason)
			}
			if acq.called {
				t.Error("acquisition ran despite the guard")
			}
		})
	}
}

func TestRemediatePolicyWrite(t *testing.T) {
	reg := newMemRegistry()
	reg.dwords[`SOFTWARE\Policies\Example!Disabled`] = 1

	p := &Pipeline{
		IsElevated: true,
		ItemName:   "Example",
		Registry:   reg,
		Policy: PolicyTarget{
			KeyPath:      `SOFTWARE\Policies\Example`,
			ValueName:    "Disabled",
			DesiredValue: 0,
		},
	}

	out := p.Remediate(verdict.Verdict{Kind: verdict.Restricted, Reason: "policy Disabled=1"})

	if !out.Attempted || !out.Succeeded {
		t.Fatalf("outcome = %+v", out)
	}
	if got := reg.dwords[`SOFTWARE\Policies\Example!Disabled`]; got != 0 {
		t.Errorf("stored value = %d, want 0", got)
	}
	if out.Applied == nil || out.Applied.Kind != installer.RegistryValue {
		t.Errorf("Applied = %+v, want a registry-value artifact", out.Applied)
	}
}

func TestRemediatePolicyDeleteFallback(t *testing.T) {
	reg := newMemRegistry()
	reg.dwords[`SOFTWARE\Policies\Example!Disabled`] = 1
	reg.sticky = true

	p := &Pipeline{
		IsElevated: true,
		ItemName:   "Example",
		Registry:   reg,
		Policy: PolicyTarget{
			KeyPath:      `SOFTWARE\Policies\Example`,
			ValueName:    "Disabled",
			DesiredValue: 0,
		},
	}

	out := p.Remediate(verdict.Verdict{Kind: verdict.Restricted})

	if !out.Succeeded {
		t.Fatalf("outcome = %+v", out)
	}
	if _, ok := reg.dwords[`SOFTWARE\Policies\Example!Disabled`]; ok {
		t.Error("restricting value still present, delete fallback did not run")
	}
}

func TestRemediatePolicyBothPathsFail(t *testing.T) {
	reg := newMemRegistry()
	reg.dwords[`SOFTWARE\Policies\Example!Disabled`] = 1
	reg.sticky = true
	reg.deleteErr = errors.New("access denied")

	p := &Pipeline{
		IsElevated: true,
		Registry:   reg,
		Policy: PolicyTarget{
			KeyPath:      `SOFTWARE\Policies\Example`,
			ValueName:    "Disabled",
			DesiredValue: 0,
		},
	}

	out := p.Remediate(verdict.Verdict{Kind: verdict.Restricted})

	if out.Succeeded {
		t.Fatal("unverified remediation reported success")
	}
	if !out.Attempted {
		t.Error("Attempted should be true past the guard")
	}
	if !strings.Contains(out.FailureReason, "access denied") {
		t.Errorf("FailureReason = %q, want the delete error", out.FailureReason)
	}
}

func TestRemediatePolicyNoTarget(t *testing.T) {
	p := &Pipeline{IsElevated: true, Registry: newMemRegistry()}
	out := p.Remediate(verdict.Verdict{Kind: verdict.Restricted})
	if out.Succeeded || !out.Attempted {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestRemediatePackageInstalls(t *testing.T) {
	reg := newMemRegistry()
	runner := &recordingRunner{}
	p := &Pipeline{
		IsElevated:    true,
		ItemName:      "Git",
		TargetVersion: "2.47.1",
		Registry:      reg,
		Acquirer: &fakeAcquirer{acquisition: &download.Acquisition{
			Path:      `C:\cache\remedian-x\setup.exe`,
			SizeBytes: 1024,
		}},
		Runner:       runner,
		RunningProcs: noProcs,
	}

	out := p.Remediate(verdict.Verdict{Kind: verdict.Stale, Current: "2.46.0", Target: "2.47.1"})

	if !out.Succeeded {
		t.Fatalf("outcome = %+v", out)
	}
	if runner.calls != 1 {
		t.Errorf("installer ran %d times, want 1", runner.calls)
	}
	if out.Applied == nil || out.Applied.Kind != installer.Executable {
		t.Errorf("Applied = %+v, want an executable artifact", out.Applied)
	}
	if got := reg.strings[`SOFTWARE\ManagedRemediations\Git!Version`]; got != "2.47.1" {
		t.Errorf("recorded version = %q, want 2.47.1", got)
	}
}

func TestRemediatePackageBlockedByProcesses(t *testing.T) {
	acq := &fakeAcquirer{}
	p := &Pipeline{
		IsElevated:        true,
		Registry:          newMemRegistry(),
		Acquirer:          acq,
		BlockingProcesses: []string{"git.exe"},
		RunningProcs:      func([]string) []string { return []string{"git.exe"} },
	}

	out := p.Remediate(verdict.Verdict{Kind: verdict.Stale})

	if out.Succeeded {
		t.Fatal("blocked install reported success")
	}
	if !strings.Contains(out.FailureReason, "git.exe") {
		t.Errorf("FailureReason = %q, want the blocking process name", out.FailureReason)
	}
	if acq.called {
		t.Error("acquisition ran while blocked")
	}
}

func TestRemediatePackageAcquisitionFailure(t *testing.T) {
	runner := &recordingRunner{}
	p := &Pipeline{
		IsElevated:   true,
		Registry:     newMemRegistry(),
		Acquirer:     &fakeAcquirer{err: errors.New("all acquisition strategies exhausted")},
		Runner:       runner,
		RunningProcs: noProcs,
	}

	out := p.Remediate(verdict.Verdict{Kind: verdict.Stale})

	if out.Succeeded {
		t.Fatal("failed acquisition reported success")
	}
	if !strings.Contains(out.FailureReason, "acquisition failed") {
		t.Errorf("FailureReason = %q", out.FailureReason)
	}
	if runner.calls != 0 {
		t.Error("installer ran without an artifact")
	}
}

func TestRemediatePackageInstallerExit(t *testing.T) {
	reg := newMemRegistry()
	p := &Pipeline{
		IsElevated:    true,
		ItemName:      "Git",
		TargetVersion: "2.47.1",
		Registry:      reg,
		Acquirer: &fakeAcquirer{acquisition: &download.Acquisition{
			Path:      `C:\cache\remedian-x\setup.exe`,
			SizeBytes: 1024,
		}},
		Runner:       &recordingRunner{exitCode: 1603},
		RunningProcs: noProcs,
	}

	out := p.Remediate(verdict.Verdict{Kind: verdict.Stale})

	if out.Succeeded {
		t.Fatal("failed install reported success")
	}
	if !strings.Contains(out.FailureReason, "1603") {
		t.Errorf("FailureReason = %q, want the exit code", out.FailureReason)
	}
	if _, ok := reg.strings[`SOFTWARE\ManagedRemediations\Git!Version`]; ok {
		t.Error("version recorded for a failed install")
	}
}
