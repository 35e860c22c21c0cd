// Package cache stores frame descriptions keyed by a content fingerprint so
// repeated runs over the same video skip redundant vision calls.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Cache keeps descriptions in memory and mirrors them to disk. Disk entries
// survive restarts and are folded back into memory on first lookup.
type Cache struct {
	dir     string
	enabled bool
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[string]string
}

func New(dir string, enabled bool, logger *slog.Logger) *Cache {
	return &Cache{
		dir:     dir,
		enabled: enabled,
		logger:  logger,
		entries: make(map[string]string),
	}
}

// Fingerprint derives a stable key from the frame's filename and byte size.
// Two extractions of the same video produce identical frame files, so this
// is cheap and good enough to dedupe without hashing pixel data.
func Fingerprint(path string, size int64) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s-%d", filepath.Base(path), size)))
	return hex.EncodeToString(sum[:])
}

// FingerprintFile stats the file and returns its fingerprint.
func FingerprintFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return Fingerprint(path, info.Size()), nil
}

// Lookup returns the cached description for a fingerprint, checking memory
// first then disk. A disk hit backfills the memory map.
func (c *Cache) Lookup(fingerprint string) (string, bool) {
	if !c.enabled {
		return "", false
	}

	c.mu.RLock()
	desc, ok := c.entries[fingerprint]
	c.mu.RUnlock()
	if ok {
		return desc, true
	}

	data, err := os.ReadFile(c.entryPath(fingerprint))
	if err != nil {
		return "", false
	}

	desc = string(data)
	c.mu.Lock()
	c.entries[fingerprint] = desc
	c.mu.Unlock()
	return desc, true
}

// Store records a description in both layers. Disk write failures are logged
// and ignored; the memory entry still serves this process.
func (c *Cache) Store(fingerprint, description string) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	c.entries[fingerprint] = description
	c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		if c.logger != nil {
			c.logger.Warn("failed to create cache directory", "error", err)
		}
		return
	}
	if err := os.WriteFile(c.entryPath(fingerprint), []byte(description), 0644); err != nil {
		if c.logger != nil {
			c.logger.Warn("failed to persist cache entry", "fingerprint", fingerprint, "error", err)
		}
	}
}

// Len reports the number of in-memory entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) entryPath(fingerprint string) string {
	return filepath.Join(c.dir, fingerprint+".txt")
}
