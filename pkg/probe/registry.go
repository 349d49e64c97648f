// pkg/probe/registry.go - registry-backed probes: the managed key, the
// Windows uninstall database, MSI product codes, and policy values.

package probe

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/windows/registry"

	"github.com/windowsadmins/remedian/pkg/config"
	"github.com/windowsadmins/remedian/pkg/logging"
)

// RegistryApplication contains attributes for an installed application.
type RegistryApplication struct {
	Key       string
	Name      string
	Version   string
	Uninstall string
}

// RegistryReader is the narrow read surface the registry probes need.
type RegistryReader interface {
	ReadString(keyPath, valueName string) (string, error)
	ReadInteger(keyPath, valueName string) (uint64, error)
}

// ManagedKeyProbe reads the version Remedian recorded for the item under
// its own registry key. Most authoritative: it reflects what this tool
// last installed.
type ManagedKeyProbe struct {
	ItemName string
	Registry RegistryReader
}

func (p ManagedKeyProbe) Name() string { return "managed-key" }

func (p ManagedKeyProbe) Run() Result {
	keyPath := config.ManagedKeyPath + `\` + p.ItemName
	ver, err := p.Registry.ReadString(keyPath, "Version")
	if err != nil {
		return Failure(fmt.Sprintf("no managed version recorded: %v", err))
	}
	if ver == "" {
		return Failure("managed version value is empty")
	}
	return Result{
		Succeeded:  true,
		Value:      ver,
		Provenance: `HKLM\` + keyPath,
	}
}

// UninstallKeyProbe enumerates the Windows uninstall database for an
// application whose DisplayName matches the item, exactly first and then
// by substring.
type UninstallKeyProbe struct {
	ItemName string
}

func (p UninstallKeyProbe) Name() string { return "uninstall-key" }

func (p UninstallKeyProbe) Run() Result {
	apps, err := collectUninstallKeys()
	if err != nil {
		return Failure(fmt.Sprintf("unable to enumerate uninstall keys: %v", err))
	}

	if app, ok := apps[p.ItemName]; ok {
		return Result{
			Succeeded:  true,
			Value:      app.Version,
			Provenance: `HKLM\` + app.Key,
		}
	}
	for _, app := range apps {
		if strings.Contains(app.Name, p.ItemName) {
			logging.Debug("Partial uninstall-key match",
				"item", p.ItemName,
				"registryName", app.Name,
			)
			return Result{
				Succeeded:  true,
				Value:      app.Version,
				Provenance: `HKLM\` + app.Key,
			}
		}
	}
	return Failure(fmt.Sprintf("no uninstall entry matches %q", p.ItemName))
}

// ProductCodeProbe reads DisplayVersion for an MSI product code.
type ProductCodeProbe struct {
	ProductCode string
	Registry    RegistryReader
}

func (p ProductCodeProbe) Name() string { return "msi-product-code" }

func (p ProductCodeProbe) Run() Result {
	if p.ProductCode == "" {
		return Failure("no product code configured")
	}
	keyPath := `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall\` + p.ProductCode
	ver, err := p.Registry.ReadString(keyPath, "DisplayVersion")
	if err != nil {
		return Failure(fmt.Sprintf("product code %s not registered: %v", p.ProductCode, err))
	}
	return Result{
		Succeeded:  true,
		Value:      ver,
		Provenance: `HKLM\` + keyPath,
	}
}

// PolicyProbe reads a policy registry value and reports whether it
// restricts the tracked item. By default a compliant or absent value is
// a probe miss so the chain can continue to the version probes; a probe
// running standalone sets ReportCompliant to surface the healthy state
// too.
type PolicyProbe struct {
	KeyPath         string
	ValueName       string
	DesiredValue    uint32
	ReportCompliant bool
	Registry        RegistryReader
}

func (p PolicyProbe) Name() string { return "policy-value" }

func (p PolicyProbe) Run() Result {
	if p.KeyPath == "" || p.ValueName == "" {
		return Failure("no policy check configured")
	}
	val, err := p.Registry.ReadInteger(p.KeyPath, p.ValueName)
	if err != nil {
		return Failure(fmt.Sprintf("policy value absent: %v", err))
	}

	provenance := `HKLM\` + p.KeyPath + `!` + p.ValueName
	if uint32(val) != p.DesiredValue {
		return Result{
			Succeeded:  true,
			Value:      strconv.FormatUint(val, 10),
			Provenance: provenance,
			Restricted: true,
			RestrictionReason: fmt.Sprintf("policy %s\\%s=%d (expected %d)",
				p.KeyPath, p.ValueName, val, p.DesiredValue),
		}
	}
	if p.ReportCompliant {
		return Result{
			Succeeded:  true,
			Value:      strconv.FormatUint(val, 10),
			Provenance: provenance,
		}
	}
	return Failure(fmt.Sprintf("policy value compliant (%d)", val))
}

// collectUninstallKeys enumerates the registry for installed apps.
func collectUninstallKeys() (map[string]RegistryApplication, error) {
	installedApps := make(map[string]RegistryApplication)
	regPaths := []string{
		`Software\Microsoft\Windows\CurrentVersion\Uninstall`,
		`Software\Wow6432Node\Microsoft\Windows\CurrentVersion\Uninstall`,
	}
	var lastErr error
	for _, rPath := range regPaths {
		key, err := registry.OpenKey(registry.LOCAL_MACHINE, rPath, registry.READ)
		if err != nil {
			lastErr = err
			continue
		}

		subKeys, err := key.ReadSubKeyNames(0)
		if err != nil {
			key.Close()
			lastErr = err
			continue
		}
		for _, subKey := range subKeys {
			fullPath := rPath + `\` + subKey
			subKeyObj, err := registry.OpenKey(registry.LOCAL_MACHINE, fullPath, registry.READ)
			if err != nil {
				continue
			}

			var app RegistryApplication
			app.Key = fullPath
			if name, _, err := subKeyObj.GetStringValue("DisplayName"); err == nil {
				app.Name = name
			}
			if versionStr, _, err := subKeyObj.GetStringValue("DisplayVersion"); err == nil {
				app.Version = versionStr
			}
			if uninstallStr, _, err := subKeyObj.GetStringValue("UninstallString"); err == nil {
				app.Uninstall = uninstallStr
			}
			subKeyObj.Close()

			// Entries without the critical fields are not applications.
			if app.Name != "" && app.Version != "" {
				installedApps[app.Name] = app
			}
		}
		key.Close()
	}
	if len(installedApps) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return installedApps, nil
}
