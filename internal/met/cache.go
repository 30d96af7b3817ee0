package met

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wsilva/contrail/pkg/logger"
)

// Cache keeps fetched wind grids in memory and mirrors them to disk so
// repeated runs over the same window do not re-download
type Cache struct {
	config Config
	logger *logger.Logger

	mu   sync.RWMutex
	grid *Grid
}

// NewCache creates a grid cache rooted at the configured directory
func NewCache(config Config, log *logger.Logger) *Cache {
	return &Cache{
		config: config,
		logger: log.Named("met-cache"),
	}
}

// Get returns the in-memory grid if it covers the request and has not
// expired, otherwise tries the disk cache
func (c *Cache) Get(req GridRequest) *Grid {
	c.mu.RLock()
	grid := c.grid
	c.mu.RUnlock()

	if grid != nil && !c.expired(grid) && grid.Covers(req) {
		return grid
	}
	if disk := c.loadFromDisk(req); disk != nil && !c.expired(disk) {
		return disk
	}
	return nil
}

// GetStale returns any cached grid covering the request, expired or not.
// Used as a fallback when the download retries are exhausted.
func (c *Cache) GetStale(req GridRequest) *Grid {
	c.mu.RLock()
	grid := c.grid
	c.mu.RUnlock()

	if grid != nil && grid.Covers(req) {
		return grid
	}
	return c.loadFromDisk(req)
}

// Put stores a freshly fetched grid in memory and on disk
func (c *Cache) Put(req GridRequest, grid *Grid) {
	c.mu.Lock()
	c.grid = grid
	c.mu.Unlock()

	if c.config.CacheDir == "" {
		return
	}
	if err := os.MkdirAll(c.config.CacheDir, 0755); err != nil {
		c.logger.Warn("Failed to create met cache directory", logger.Error(err))
		return
	}
	path := c.cachePath(req)
	data, err := json.Marshal(grid)
	if err != nil {
		c.logger.Warn("Failed to encode grid for caching", logger.Error(err))
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		c.logger.Warn("Failed to write grid cache file", logger.Error(err))
		return
	}
	c.logger.Debug("Wind grid cached",
		logger.String("path", path),
		logger.Time("fetched_at", grid.FetchedAt))
}

func (c *Cache) loadFromDisk(req GridRequest) *Grid {
	if c.config.CacheDir == "" {
		return nil
	}
	path := c.cachePath(req)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var grid Grid
	if err := json.Unmarshal(data, &grid); err != nil {
		c.logger.Warn("Failed to decode cached grid, ignoring",
			logger.String("path", path), logger.Error(err))
		return nil
	}
	if !grid.Covers(req) {
		return nil
	}
	c.mu.Lock()
	c.grid = &grid
	c.mu.Unlock()
	c.logger.Info("Loaded wind grid from disk cache",
		logger.String("path", path),
		logger.Time("fetched_at", grid.FetchedAt))
	return &grid
}

func (c *Cache) expired(grid *Grid) bool {
	if c.config.CacheExpiryMinutes <= 0 {
		return false
	}
	expiry := time.Duration(c.config.CacheExpiryMinutes) * time.Minute
	return time.Since(grid.FetchedAt) > expiry
}

// cachePath keys the cache file on the full request window
func (c *Cache) cachePath(req GridRequest) string {
	key, _ := json.Marshal(req)
	sum := sha256.Sum256(key)
	name := fmt.Sprintf("grid-%s.json", hex.EncodeToString(sum[:8]))
	return filepath.Join(c.config.CacheDir, name)
}
