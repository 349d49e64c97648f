// pkg/probe/wmi.go - WMI-backed probes: installed package query and
// service status.

package probe

import (
	"fmt"
	"strings"

	"github.com/windowsadmins/remedian/pkg/platform"
)

// abstracted for testing
var (
	queryPackages = platform.QueryInstalledPackages
	queryService  = platform.QueryServiceStatus
)

// PackageQueryProbe asks the MSI installer database for packages whose
// name matches the configured pattern and reports the first match's
// version.
type PackageQueryProbe struct {
	Pattern string
}

func (p PackageQueryProbe) Name() string { return "package-query" }

func (p PackageQueryProbe) Run() Result {
	if p.Pattern == "" {
		return Failure("no package pattern configured")
	}
	packages, err := queryPackages(p.Pattern)
	if err != nil {
		return Failure(fmt.Sprintf("package query failed: %v", err))
	}
	if len(packages) == 0 {
		return Failure(fmt.Sprintf("no installed package matches %q", p.Pattern))
	}

	pkg := packages[0]
	return Result{
		Succeeded:  true,
		Value:      pkg.Version,
		Provenance: fmt.Sprintf("%s package %q (%s)", pkg.Provider, pkg.Name, pkg.Publisher),
	}
}

// ServiceProbe reports whether a service exists and is runnable. A
// disabled start type is a restriction, not an absence: the software is
// installed but policy keeps it off.
type ServiceProbe struct {
	ServiceName string
}

func (p ServiceProbe) Name() string { return "service-status" }

func (p ServiceProbe) Run() Result {
	if p.ServiceName == "" {
		return Failure("no service name configured")
	}
	status, err := queryService(p.ServiceName)
	if err != nil {
		return Failure(fmt.Sprintf("service query failed: %v", err))
	}

	result := Result{
		Succeeded:  true,
		Value:      status.State,
		Provenance: fmt.Sprintf("service %s (start mode %s)", status.Name, status.StartMode),
	}
	if strings.EqualFold(status.StartMode, "Disabled") {
		result.Restricted = true
		result.RestrictionReason = fmt.Sprintf("service %s start type is Disabled", status.Name)
	}
	return result
}
