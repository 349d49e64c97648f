// pkg/platform/fetch.go - HTTP fetch adapter.

package platform

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// HTTPFetcher downloads URLs to local files with a hard request timeout.
type HTTPFetcher struct {
	Timeout time.Duration
}

// Fetch streams url into dest and returns the number of bytes written.
// A non-2xx status is an error carrying the exact status code.
func (f HTTPFetcher) Fetch(url string, headers map[string]string, dest string) (int64, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare HTTP request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("unexpected HTTP status code: %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to open destination file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return written, fmt.Errorf("failed to write downloaded data: %w", err)
	}
	return written, nil
}
