// Package repocache caches the resolved repository list for a team so
// repeated runs within the cache window reuse it. The collection run fills
// the cache from the team's configured repositories; no upstream
// repository-listing call is made on a miss.
package repocache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultMaxAge is how long a cached repository list stays valid; after
// that Get reports a miss and the next run stores the list again.
const DefaultMaxAge = 24 * time.Hour

const dirPerm = 0o750
const filePerm = 0o600

// ErrTeamMismatch describes a cache entry on disk that belongs to a
// different team than the one requested. Get does not return it; it
// reports such an entry as a miss.
var ErrTeamMismatch = errors.New("repo cache entry belongs to a different team")

// Entry is the persisted form of one team's resolved repository list.
type Entry struct {
	Team         string    `json:"team"`
	Repositories []string  `json:"repositories"`
	CachedAt     time.Time `json:"cached_at"`
}

// Cache reads and writes per-team repository list entries under BaseDir.
type Cache struct {
	BaseDir string
	MaxAge  time.Duration
}

// New creates a Cache rooted at baseDir with the default max age.
func New(baseDir string) *Cache {
	return &Cache{BaseDir: baseDir, MaxAge: DefaultMaxAge}
}

// DefaultDir returns ~/.pulse/repocache, mirroring the way the rest of the
// toolchain derives its default state directories from the user's home.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return filepath.Join(home, ".pulse", "repocache")
}

func teamHash(team string) string {
	h := sha256.Sum256([]byte(team))

	return hex.EncodeToString(h[:8])
}

func (c *Cache) path(team string) string {
	return filepath.Join(c.BaseDir, teamHash(team)+".json")
}

// Get returns the cached repository list for team if present and younger
// than MaxAge. The bool is false on any cache miss (absent, stale, or
// corrupt) rather than an error, since a miss is always handled by falling
// back to the live upstream call.
func (c *Cache) Get(team string) ([]string, bool) {
	data, err := os.ReadFile(c.path(team))
	if err != nil {
		return nil, false
	}

	var entry Entry

	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	if entry.Team != team {
		return nil, false
	}

	maxAge := c.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	if time.Since(entry.CachedAt) > maxAge {
		return nil, false
	}

	return entry.Repositories, true
}

// Put writes the resolved repository list for team.
func (c *Cache) Put(team string, repositories []string) error {
	if err := os.MkdirAll(c.BaseDir, dirPerm); err != nil {
		return fmt.Errorf("create repo cache dir: %w", err)
	}

	entry := Entry{
		Team:         team,
		Repositories: repositories,
		CachedAt:     time.Now().UTC(),
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal repo cache entry: %w", err)
	}

	if err := os.WriteFile(c.path(team), data, filePerm); err != nil {
		return fmt.Errorf("write repo cache entry: %w", err)
	}

	return nil
}

// Invalidate removes the cached entry for team, forcing the next Get to miss.
func (c *Cache) Invalidate(team string) error {
	err := os.Remove(c.path(team))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove repo cache entry: %w", err)
	}

	return nil
}
