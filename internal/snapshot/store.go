// Package snapshot persists one collection run's results to disk as a
// single JSON file, written atomically so a crash or concurrent reader
// never observes a partially-written snapshot.
package snapshot

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/teammetrics/pulse/internal/domain"
	"github.com/teammetrics/pulse/pkg/persist"
)

const dirPerm = 0o750

// Store reads and writes Snapshot values under a base directory, one file
// per run, named by run ID plus an environment suffix. The range label is
// stored inside the file, not in its name, so each run over the same range
// and environment writes its own file.
type Store struct {
	dir       string
	codec     persist.Codec
	envSuffix string
}

// New creates a Store rooted at dir, using JSON as the on-disk format (the
// same codec style as the rest of the toolchain's persisted state).
func New(dir string) *Store {
	return &Store{dir: dir, codec: persist.NewJSONCodec()}
}

// WithEnvironment returns a copy of the Store whose filenames carry a
// "_<env>" suffix, so runs against different environments (e.g. "uat")
// never collide with or shadow each other on disk.
func (s *Store) WithEnvironment(env string) *Store {
	cp := *s

	if env != "" {
		cp.envSuffix = "_" + env
	}

	return &cp
}

func (s *Store) path(runID string) string {
	return filepath.Join(s.dir, runID+s.envSuffix+s.codec.Extension())
}

// Save writes snap to disk via a temp-file-then-rename, so a reader either
// sees the complete prior snapshot or the complete new one, never a
// half-written file (invariant 8).
func (s *Store) Save(snap domain.Snapshot) error {
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	var buf bytes.Buffer

	if err := s.codec.Encode(&buf, snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := atomic.WriteFile(s.path(snap.RunID), &buf); err != nil {
		return fmt.Errorf("write snapshot atomically: %w", err)
	}

	return nil
}

// Load reads back a previously saved snapshot by run ID.
func (s *Store) Load(runID string) (domain.Snapshot, error) {
	var snap domain.Snapshot

	file, err := os.Open(s.path(runID))
	if err != nil {
		return snap, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()

	if err := s.codec.Decode(file, &snap); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}

	return snap, nil
}

// Latest returns the run ID of the most recently written snapshot, or
// false if none exist.
func (s *Store) Latest() (string, bool) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", false
	}

	var (
		latestID string
		latestAt time.Time
	)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		stem := trimExt(entry.Name(), s.codec.Extension())
		if !strings.HasSuffix(stem, s.envSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().After(latestAt) {
			latestAt = info.ModTime()
			latestID = strings.TrimSuffix(stem, s.envSuffix)
		}
	}

	return latestID, latestID != ""
}

func trimExt(name, ext string) string {
	if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
		return name[:len(name)-len(ext)]
	}

	return name
}
