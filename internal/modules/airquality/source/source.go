// Package source downloads the sensor CSV exports and keeps a local copy so
// repeated loads do not hit the network.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/svemuri1602/air-quality-dashboard/internal/metrics"
)

var ErrUnexpectedStatus = errors.New("unexpected http status")

type Fetcher struct {
	CacheDir string
	// TTL bounds the age of a cached file; zero means a cached file is reused forever.
	TTL     time.Duration
	Timeout time.Duration
	Client  *http.Client

	now func() time.Time
}

func NewFetcher(cacheDir string, ttl, timeout time.Duration) *Fetcher {
	return &Fetcher{
		CacheDir: cacheDir,
		TTL:      ttl,
		Timeout:  timeout,
		Client:   &http.Client{},
		now:      time.Now,
	}
}

// CachePath is where the copy of dataset name is kept.
func (f *Fetcher) CachePath(name string) string {
	return filepath.Join(f.CacheDir, name+".csv")
}

// Fetch returns a local path holding the CSV for name. A url without an
// http(s) scheme is treated as a local file and returned as is.
func (f *Fetcher) Fetch(ctx context.Context, name, url string) (string, error) {
	if !isRemote(url) {
		if _, err := os.Stat(url); err != nil {
			metrics.SourceFetches.WithLabelValues(name, "error").Inc()
			return "", fmt.Errorf("source %s: %w", name, err)
		}
		metrics.SourceFetches.WithLabelValues(name, "local").Inc()
		return url, nil
	}

	path := f.CachePath(name)
	if f.fresh(path) {
		slog.Debug("using cached dataset", "dataset", name, "path", path)
		metrics.SourceFetches.WithLabelValues(name, "cache_hit").Inc()
		return path, nil
	}

	start := time.Now()
	n, err := f.download(ctx, url, path)
	metrics.SourceFetchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceFetches.WithLabelValues(name, "error").Inc()
		return "", fmt.Errorf("download %s: %w", name, err)
	}
	metrics.SourceFetches.WithLabelValues(name, "downloaded").Inc()
	slog.Info("dataset downloaded", "dataset", name, "bytes", n, "path", path,
		"duration_ms", time.Since(start).Milliseconds())
	return path, nil
}

// Invalidate drops the cached copy of name so the next Fetch downloads it.
func (f *Fetcher) Invalidate(name string) error {
	err := os.Remove(f.CachePath(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (f *Fetcher) fresh(path string) bool {
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return false
	}
	if f.TTL <= 0 {
		return true
	}
	now := time.Now
	if f.now != nil {
		now = f.now
	}
	return now().Sub(st.ModTime()) < f.TTL
}

func (f *Fetcher) download(ctx context.Context, url, path string) (int64, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("close response body", "error", err)
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}

func isRemote(url string) bool {
	u := strings.ToLower(url)
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
