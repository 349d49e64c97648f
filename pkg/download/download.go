// pkg/download/download.go - artifact acquisition with layered fallback.
//
// Acquisition resolves a shared/public download reference into a direct
// URL and fetches it into a private, run-scoped temporary directory.
// On failure it falls back in order: alternate URL construction first,
// then an alternate client-identity profile, before giving up.

package download

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/windowsadmins/remedian/pkg/logging"
	"github.com/windowsadmins/remedian/pkg/retry"
)

// Fetcher streams a URL into a destination file.
type Fetcher interface {
	Fetch(url string, headers map[string]string, dest string) (int64, error)
}

// client identity profiles tried in order; some CDN fronts refuse
// non-browser agents.
var requestProfiles = []map[string]string{
	{"User-Agent": "remedian-agent"},
	{"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"},
}

// Acquirer fetches one remediation artifact per run.
type Acquirer struct {
	Fetcher        Fetcher
	ShareURL       string
	ReleasePattern string // fmt pattern, %s = target version
	TargetVersion  string
	ArtifactName   string // optional download file name override
	ExpectedSHA256 string
	TempParent     string // "" means the system temp directory
}

// Acquisition is a fetched artifact in its run-scoped directory. Cleanup
// must be called on every exit path.
type Acquisition struct {
	Path      string
	SizeBytes int64
	dir       string
}

// Cleanup releases the temporary storage backing the acquisition.
func (a *Acquisition) Cleanup() {
	if a == nil || a.dir == "" {
		return
	}
	if err := os.RemoveAll(a.dir); err != nil {
		logging.Warn("Failed to remove temporary download directory",
			"dir", a.dir, "error", err)
	}
	a.dir = ""
}

// Dir exposes the run-scoped directory for scratch use (archive
// extraction) so everything is reclaimed in one sweep.
func (a *Acquisition) Dir() string {
	return a.dir
}

// Acquire tries every URL strategy under the default request profile,
// then repeats them under the alternate profile. The first fetch that
// produces a non-empty, hash-clean file wins.
func (a *Acquirer) Acquire() (*Acquisition, error) {
	urls := a.candidateURLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("no download reference configured")
	}

	tempDir, err := os.MkdirTemp(a.TempParent, "remedian-")
	if err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	var lastErr error
	for _, headers := range requestProfiles {
		for _, u := range urls {
			dest := filepath.Join(tempDir, a.fileNameFor(u))
			size, err := a.fetchOnce(u, headers, dest)
			if err != nil {
				lastErr = err
				logging.Warn("Acquisition strategy failed",
					"url", u,
					"user_agent", headers["User-Agent"],
					"error", err,
				)
				continue
			}
			logging.Info("Artifact acquired", "url", u, "file", dest, "size", size)
			return &Acquisition{Path: dest, SizeBytes: size, dir: tempDir}, nil
		}
	}

	os.RemoveAll(tempDir)
	return nil, fmt.Errorf("all acquisition strategies exhausted: %w", lastErr)
}

// fetchOnce performs one strategy attempt with short retry backoff, then
// validates the result.
func (a *Acquirer) fetchOnce(u string, headers map[string]string, dest string) (int64, error) {
	var size int64
	cfg := retry.RetryConfig{MaxRetries: 2, InitialInterval: time.Second, Multiplier: 2.0}
	err := retry.Retry(cfg, func() error {
		n, err := a.Fetcher.Fetch(u, headers, dest)
		size = n
		return err
	})
	if err != nil {
		os.Remove(dest)
		return 0, err
	}

	if size == 0 {
		os.Remove(dest)
		return 0, fmt.Errorf("zero content length from %s", u)
	}

	if a.ExpectedSHA256 != "" && !Verify(dest, a.ExpectedSHA256) {
		os.Remove(dest)
		return 0, fmt.Errorf("SHA256 mismatch for %s", u)
	}
	return size, nil
}

// candidateURLs returns the URL-construction strategies in priority
// order: the resolved share link first, the version-constructed release
// URL second.
func (a *Acquirer) candidateURLs() []string {
	var urls []string
	if a.ShareURL != "" {
		urls = append(urls, directShareURL(a.ShareURL))
	}
	if a.ReleasePattern != "" && a.TargetVersion != "" {
		urls = append(urls, fmt.Sprintf(a.ReleasePattern, a.TargetVersion))
	}
	return urls
}

// directShareURL turns a shared/public page reference into a direct-fetch
// URL by forcing the download query parameter.
func directShareURL(share string) string {
	if strings.Contains(share, "download=1") {
		return share
	}
	if strings.Contains(share, "?") {
		return share + "&download=1"
	}
	return share + "?download=1"
}

// fileNameFor picks the local file name the artifact lands under; the
// extension drives installer dispatch.
func (a *Acquirer) fileNameFor(rawURL string) string {
	if a.ArtifactName != "" {
		return a.ArtifactName
	}
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			return base
		}
	}
	return "artifact.bin"
}

// Verify checks if the given file matches the expected SHA256.
func Verify(file string, expectedHash string) bool {
	actual, err := FileSHA256(file)
	if err != nil {
		logging.Error("Failed to hash file", "path", file, "error", err)
		return false
	}
	return strings.EqualFold(actual, expectedHash)
}

// FileSHA256 returns the SHA256 sum of a file.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
