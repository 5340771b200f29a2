// Package fetch downloads the prebuilt proxy executable over HTTP with
// bounded retries and atomic placement.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/proxynode/installer/interfaces"
)

// Compile-time interface satisfaction check.
var _ interfaces.BinaryFetcher = (*Fetcher)(nil)

// Fetcher implements interfaces.BinaryFetcher. Transient HTTP failures
// are retried with capped exponential backoff until MaxElapsedTime.
type Fetcher struct {
	client         *http.Client
	maxElapsedTime time.Duration
	log            *slog.Logger
}

// NewFetcher creates a fetcher with a 5-minute overall retry budget.
func NewFetcher(log *slog.Logger) *Fetcher {
	return &Fetcher{
		client:         &http.Client{Timeout: 2 * time.Minute},
		maxElapsedTime: 5 * time.Minute,
		log:            log,
	}
}

// Fetch downloads url to dest with executable permissions. The file is
// written next to dest and renamed into place, so an interrupted download
// never leaves a truncated executable at the install path.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = f.maxElapsedTime

	attempt := 0
	operation := func() error {
		attempt++
		if err := f.download(ctx, url, dest); err != nil {
			f.log.Warn("Download attempt failed", "url", url, "attempt", attempt, "err", err)
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("%w: %s: %w", interfaces.ErrDownload, url, err)
	}

	f.log.Info("Downloaded binary", "url", url, "dest", dest)
	return nil
}

func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	partial := dest + ".partial"
	out, err := os.OpenFile(partial, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return backoff.Permanent(err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(partial)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(partial)
		return err
	}

	return os.Rename(partial, dest)
}
