// Package iconcache stores alarm icons on disk, one file per alert id.
//
// Existence of the file is the cache-hit signal, so an alarm's icon is
// downloaded at most once no matter how many recipients it matches. Writes
// go through a temp file and a rename; a failed download never leaves a
// partial file behind that would read as a hit later.
package iconcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const maxIconSize = 2 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Cache is an on-disk icon store addressed by alert id.
type Cache struct {
	dir     string
	baseURL string
	client  HTTPClient
}

// New creates a Cache writing into dir. Relative icon URLs resolve against
// baseURL, the alarm portal's canonical host.
func New(dir, baseURL string, client HTTPClient) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create icon cache dir: %w", err)
	}
	return &Cache{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}, nil
}

// GetOrFetch returns the local path of the alarm's icon, downloading it on
// a cache miss. On any fetch failure it returns an error and the cache
// stays unchanged.
func (c *Cache) GetOrFetch(ctx context.Context, iconURL, alertID string) (string, error) {
	dst := c.path(iconURL, alertID)
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}

	url := iconURL
	if strings.HasPrefix(url, "/") {
		url = c.baseURL + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch icon: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch icon: unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(c.dir, "icon-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, io.LimitReader(resp.Body, maxIconSize)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write icon: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("commit icon: %w", err)
	}
	return dst, nil
}

// path derives the deterministic cache file name for an alert id, keeping
// the icon URL's extension when it has one.
func (c *Cache) path(iconURL, alertID string) string {
	ext := path.Ext(iconURL)
	if ext == "" || len(ext) > 5 {
		ext = ".png"
	}
	return filepath.Join(c.dir, alertID+ext)
}
