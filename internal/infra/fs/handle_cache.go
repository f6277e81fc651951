package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logging "channel-tracker/internal/infra/log"

	"go.uber.org/zap"
)

const HandleCacheFile = "handles.json"

type handleCacheData struct {
	Handles map[string]string `json:"handles"`
}

// HandleCache persists resolved handle -> channel ID pairs between runs.
// Handles are stored lowercased and without the leading @.
type HandleCache struct {
	path    string
	mu      sync.Mutex
	handles map[string]string
	loaded  bool
}

// NewHandleCache keeps its file under dataDir.
func NewHandleCache(dataDir string) *HandleCache {
	return &HandleCache{path: filepath.Join(dataDir, HandleCacheFile)}
}

func (c *HandleCache) Path() string { return c.path }

// NormalizeHandle is the cache key form of a handle.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}

func (c *HandleCache) load() error {
	if c.loaded {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		logging.LogDebug("Handle cache file does not exist, starting empty", zap.String("file", c.path))
		c.handles = map[string]string{}
		c.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read handle cache file: %w", err)
	}

	handles := map[string]string{}
	if trimmed := strings.TrimSpace(string(data)); trimmed != "" && trimmed != "{}" {
		var parsed handleCacheData
		if err := json.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("failed to parse handle cache JSON: %w", err)
		}
		for h, id := range parsed.Handles {
			handles[NormalizeHandle(h)] = id
		}
	}

	c.handles = handles
	c.loaded = true
	logging.LogDebug("Loaded handle cache", zap.String("file", c.path), zap.Int("count", len(handles)))
	return nil
}

// Lookup returns the cached channel ID for handle.
func (c *HandleCache) Lookup(handle string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return "", false, err
	}
	id, ok := c.handles[NormalizeHandle(handle)]
	return id, ok, nil
}

// Store records handle -> channelID and rewrites the file.
func (c *HandleCache) Store(handle, channelID string) error {
	if channelID == "" {
		return fmt.Errorf("channel ID cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		// a corrupt file is replaced rather than blocking every later save
		logging.LogWarn("Handle cache unreadable, rewriting", zap.String("file", c.path), zap.Error(err))
		c.handles = map[string]string{}
		c.loaded = true
	}

	key := NormalizeHandle(handle)
	if c.handles[key] == channelID {
		return nil
	}
	c.handles[key] = channelID
	return c.save()
}

// Entries returns a copy of the cached pairs.
func (c *HandleCache) Entries() (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(c.handles))
	for h, id := range c.handles {
		out[h] = id
	}
	return out, nil
}

func (c *HandleCache) save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(handleCacheData{Handles: c.handles}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal handle cache JSON: %w", err)
	}

	tempFilePath := c.path + ".tmp"
	if err := os.WriteFile(tempFilePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary handle cache file: %w", err)
	}
	if err := os.Rename(tempFilePath, c.path); err != nil {
		os.Remove(tempFilePath)
		return fmt.Errorf("failed to rename temporary file to handle cache file: %w", err)
	}

	logging.LogDebug("Saved handle cache", zap.String("file", c.path), zap.Int("count", len(c.handles)))
	return nil
}
