// pkg/probe/file.go - file metadata probe.

package probe

import (
	"fmt"
	"os"

	"github.com/windowsadmins/remedian/pkg/extract"
)

// FileVersionProbe reads the version resource embedded in a binary on
// disk. Useful when the item installs outside the MSI database.
type FileVersionProbe struct {
	Path string
}

func (p FileVersionProbe) Name() string { return "file-metadata" }

func (p FileVersionProbe) Run() Result {
	if p.Path == "" {
		return Failure("no binary path configured")
	}
	if _, err := os.Stat(p.Path); err != nil {
		return Failure(fmt.Sprintf("binary not present: %v", err))
	}

	metadata := extract.GetFileMetadata(p.Path)
	if metadata.VersionString == "" {
		return Failure(fmt.Sprintf("no version resource in %s", p.Path))
	}
	return Result{
		Succeeded:  true,
		Value:      metadata.VersionString,
		Provenance: "version resource of " + p.Path,
	}
}
