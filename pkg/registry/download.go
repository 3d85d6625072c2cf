// Package registry resolves package-scoped ids by downloading gzip tar
// archives from the package registry and serving entries out of a pluggable
// cache backend.
package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"typstkit/pkg/fileid"
	"typstkit/pkg/resolver"
)

// DefaultBaseURL is the public package registry.
const DefaultBaseURL = "https://packages.typst.org"

// DefaultRetryCount bounds archive fetch attempts.
const DefaultRetryCount = 3

// Backoff returns the delay before retry attempt n (1-based). A nil Backoff
// retries immediately.
type Backoff func(attempt int) time.Duration

// Downloader fetches package archives with bounded retry. The zero value
// uses http.DefaultClient against the public registry.
type Downloader struct {
	Client     *http.Client
	BaseURL    string
	RetryCount int
	Backoff    Backoff
}

// ArchiveURL composes the registry URL for a package archive.
func (d *Downloader) ArchiveURL(spec fileid.PackageSpec) string {
	base := d.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return fmt.Sprintf("%s/%s/%s-%s.tar.gz", base, spec.Namespace, spec.Name, spec.Version)
}

// FetchArchive downloads the compressed archive for spec. Network failures
// and non-2xx statuses are retried up to the configured count; when the
// budget is exhausted the last diagnostic is surfaced as a NetworkError.
func (d *Downloader) FetchArchive(ctx context.Context, spec fileid.PackageSpec) ([]byte, error) {
	url := d.ArchiveURL(spec)
	retries := d.RetryCount
	if retries <= 0 {
		retries = DefaultRetryCount
	}

	var lastErr string
	for attempt := 1; attempt <= retries; attempt++ {
		if attempt > 1 && d.Backoff != nil {
			select {
			case <-time.After(d.Backoff(attempt)):
			case <-ctx.Done():
				return nil, &resolver.NetworkError{Message: ctx.Err().Error()}
			}
		}
		b, err := d.get(ctx, url)
		if err == nil {
			return b, nil
		}
		lastErr = err.Error()
		slog.Warn("package fetch failed", "url", url, "attempt", attempt, "err", err)
	}
	return nil, &resolver.NetworkError{Message: lastErr}
}

func (d *Downloader) get(ctx context.Context, url string) ([]byte, error) {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "typstkit")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
