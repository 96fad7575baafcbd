// Package covers caches remote cover images on local disk.
package covers

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache stores fetched cover images under content-addressed filenames.
type Cache struct {
	cacheDir   string
	httpClient *http.Client
}

// NewCache creates a cover cache at the specified directory.
func NewCache(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &Cache{
		cacheDir: cacheDir,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// GetCover returns the cached cover for a book, fetching it first when not
// yet present. Empty and placeholder URLs resolve to an empty path without
// touching the network.
func (c *Cache) GetCover(ctx context.Context, bookID uint, coverURL string) (string, error) {
	if coverURL == "" || isPlaceholderURL(coverURL) {
		return "", nil
	}

	filename := c.coverFilename(bookID, coverURL)
	cachePath := filepath.Join(c.cacheDir, filename)

	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	if err := c.fetchAndCache(ctx, coverURL, cachePath); err != nil {
		return "", err
	}
	return cachePath, nil
}

// InvalidateCover removes the cached cover for a book.
func (c *Cache) InvalidateCover(bookID uint) error {
	pattern := filepath.Join(c.cacheDir, fmt.Sprintf("cover_%d_*", bookID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// isPlaceholderURL recognizes the remote service's stand-in image for books
// without a real cover. Caching those just fills the disk with grey boxes.
func isPlaceholderURL(coverURL string) bool {
	return strings.Contains(coverURL, "nophoto")
}

// coverFilename generates a unique filename based on book id and URL hash.
func (c *Cache) coverFilename(bookID uint, coverURL string) string {
	hash := sha256.Sum256([]byte(coverURL))
	return fmt.Sprintf("cover_%d_%x.jpg", bookID, hash[:8])
}

// fetchAndCache downloads a cover image and saves it to the cache.
func (c *Cache) fetchAndCache(ctx context.Context, url, cachePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "ShelfSync/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch cover: status %d", resp.StatusCode)
	}

	// Temp file in the same directory so the final rename is atomic.
	tmpFile, err := os.CreateTemp(c.cacheDir, "cover_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return err
	}
	tmpFile.Close()

	return os.Rename(tmpPath, cachePath)
}

// CacheDir returns the cache directory path.
func (c *Cache) CacheDir() string {
	return c.cacheDir
}
