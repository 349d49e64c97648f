// pkg/platform/wmi.go - WMI-backed system queries.

package platform

import (
	"fmt"
	"strings"

	"github.com/yusufpapurcu/wmi"
)

// InstalledPackage describes one entry from the MSI installer database.
type InstalledPackage struct {
	Name      string
	Version   string
	Publisher string
	Provider  string
}

// ServiceStatus describes the runtime state of a Windows service.
type ServiceStatus struct {
	Name      string
	State     string // Running, Stopped, ...
	StartMode string // Auto, Manual, Disabled
}

// SystemInfo holds the OS identity used for diagnostics.
type SystemInfo struct {
	Caption     string
	Version     string
	BuildNumber string
}

// WMI structures for querying system information
type win32Product struct {
	Name    string
	Version string
	Vendor  string
}

type win32Service struct {
	Name      string
	State     string
	StartMode string
}

type win32OperatingSystem struct {
	Caption     string
	Version     string
	BuildNumber string
}

// QueryInstalledPackages returns installed MSI products whose name contains
// namePattern (case handled by WMI's LIKE).
func QueryInstalledPackages(namePattern string) ([]InstalledPackage, error) {
	var products []win32Product
	pattern := strings.ReplaceAll(namePattern, "'", "''")
	q := fmt.Sprintf("SELECT Name, Version, Vendor FROM Win32_Product WHERE Name LIKE '%%%s%%'", pattern)
	if err := wmi.Query(q, &products); err != nil {
		return nil, fmt.Errorf("WMI product query failed: %w", err)
	}

	packages := make([]InstalledPackage, 0, len(products))
	for _, p := range products {
		if p.Name == "" {
			continue
		}
		packages = append(packages, InstalledPackage{
			Name:      p.Name,
			Version:   p.Version,
			Publisher: p.Vendor,
			Provider:  "msi",
		})
	}
	return packages, nil
}

// QueryServiceStatus returns the state of one service, or an error when the
// service does not exist.
func QueryServiceStatus(serviceName string) (*ServiceStatus, error) {
	var services []win32Service
	name := strings.ReplaceAll(serviceName, "'", "''")
	q := fmt.Sprintf("SELECT Name, State, StartMode FROM Win32_Service WHERE Name = '%s'", name)
	if err := wmi.Query(q, &services); err != nil {
		return nil, fmt.Errorf("WMI service query failed: %w", err)
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("service %q not found", serviceName)
	}
	return &ServiceStatus{
		Name:      services[0].Name,
		State:     services[0].State,
		StartMode: services[0].StartMode,
	}, nil
}

// QuerySystemInfo returns the OS caption, version string, and build number.
func QuerySystemInfo() (*SystemInfo, error) {
	var systems []win32OperatingSystem
	err := wmi.Query("SELECT Caption, Version, BuildNumber FROM Win32_OperatingSystem", &systems)
	if err != nil {
		return nil, fmt.Errorf("WMI operating system query failed: %w", err)
	}
	if len(systems) == 0 {
		return nil, fmt.Errorf("no Win32_OperatingSystem rows returned")
	}
	return &SystemInfo{
		Caption:     systems[0].Caption,
		Version:     systems[0].Version,
		BuildNumber: systems[0].BuildNumber,
	}, nil
}
