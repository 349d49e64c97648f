// pkg/installer/installer.go - format-specific installation dispatch.
//
// Artifacts are classified into a tagged kind once, at construction, and
// every install path switches exhaustively over that kind. Adding a new
// format means adding a case, not another string match.

package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/windowsadmins/remedian/pkg/extract"
	"github.com/windowsadmins/remedian/pkg/logging"
)

// Kind identifies what an artifact is and therefore how it is applied.
type Kind int

const (
	Unknown Kind = iota
	RegistryValue
	Executable
	MsiPackage
	UpdatePackage
	Archive
)

// String returns the kind's display name.
func (k Kind) String() string {
	switch k {
	case RegistryValue:
		return "registry-value"
	case Executable:
		return "executable"
	case MsiPackage:
		return "msi-package"
	case UpdatePackage:
		return "update-package"
	case Archive:
		return "archive"
	default:
		return "unknown"
	}
}

// KindForPath classifies a file by its extension.
func KindForPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".exe":
		return Executable
	case ".msi":
		return MsiPackage
	case ".msu":
		return UpdatePackage
	case ".zip":
		return Archive
	default:
		return Unknown
	}
}

// Artifact is the concrete object used to fix a mismatch: a downloaded
// installer or a registry value. It lives for one remediation attempt.
type Artifact struct {
	Kind      Kind
	Location  string
	SizeBytes int64
}

// ExitError reports a non-zero exit status from an external installer.
// It is a failure outcome, not an exception, and is never retried.
type ExitError struct {
	Path string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("installer %s exited with code %d", e.Path, e.Code)
}

// Runner executes an external process and reports its exit code.
type Runner interface {
	Run(command string, arguments []string) (int, string, error)
}

var (
	commandMsi  = filepath.Join(os.Getenv("WINDIR"), "system32", "msiexec.exe")
	commandWusa = filepath.Join(os.Getenv("WINDIR"), "system32", "wusa.exe")
)

// Installer applies artifacts. ScratchDir is the run-scoped directory
// archives extract into; it is cleaned up with the rest of the run's
// temporary storage.
type Installer struct {
	Runner     Runner
	ScratchDir string
}

// Install applies the artifact by kind. A nil return means the installer
// process completed with exit status zero (or, for archives, that the
// embedded installer did).
func (ins *Installer) Install(artifact Artifact) error {
	return ins.install(artifact, 0)
}

func (ins *Installer) install(artifact Artifact, depth int) error {
	logging.Info("Installing artifact",
		"kind", artifact.Kind.String(),
		"location", artifact.Location,
		"size", artifact.SizeBytes,
	)

	switch artifact.Kind {
	case Executable:
		return ins.runInstaller(artifact.Location, artifact.Location, []string{"/S"})

	case MsiPackage:
		return ins.runInstaller(artifact.Location, commandMsi,
			[]string{"/i", artifact.Location, "/quiet", "/norestart"})

	case UpdatePackage:
		return ins.runInstaller(artifact.Location, commandWusa,
			[]string{artifact.Location, "/quiet", "/norestart"})

	case Archive:
		return ins.installFromArchive(artifact, depth)

	case RegistryValue:
		return fmt.Errorf("registry artifacts are applied by the policy remediation path, not the installer")

	case Unknown:
		return fmt.Errorf("unrecognized artifact format %q: install manually from %s",
			filepath.Ext(artifact.Location), artifact.Location)

	default:
		return fmt.Errorf("unhandled artifact kind %d", artifact.Kind)
	}
}

// runInstaller runs one installer invocation and converts a non-zero exit
// status into an ExitError.
func (ins *Installer) runInstaller(artifactPath, command string, args []string) error {
	exitCode, output, err := ins.Runner.Run(command, args)
	if err != nil {
		return fmt.Errorf("failed to launch installer %s: %w", command, err)
	}
	if exitCode != 0 {
		logging.Error("Installer returned non-zero exit status",
			"installer", artifactPath,
			"exit_code", exitCode,
			"output", strings.TrimSpace(output),
		)
		return &ExitError{Path: artifactPath, Code: exitCode}
	}
	logging.Info("Installer completed", "installer", artifactPath)
	return nil
}

// installFromArchive extracts the archive and installs the embedded
// installer with the same dispatch, bounded to one level: archives inside
// archives are not followed.
func (ins *Installer) installFromArchive(artifact Artifact, depth int) error {
	if depth >= 1 {
		return fmt.Errorf("nested archive %s not supported", artifact.Location)
	}

	extractDir := filepath.Join(ins.ScratchDir, "extracted")
	if err := extract.Unzip(artifact.Location, extractDir); err != nil {
		return fmt.Errorf("failed to extract %s: %w", artifact.Location, err)
	}

	candidates, err := extract.FindInstallers(extractDir)
	if err != nil {
		return fmt.Errorf("failed to search extracted archive: %w", err)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("archive %s contains no installer", artifact.Location)
	}

	embedded := candidates[0]
	logging.Debug("Found embedded installer", "path", embedded)

	info, err := os.Stat(embedded)
	var size int64
	if err == nil {
		size = info.Size()
	}
	return ins.install(Artifact{
		Kind:      KindForPath(embedded),
		Location:  embedded,
		SizeBytes: size,
	}, depth+1)
}
