// Package cache manages ephemeral decrypted copies of fetched files. The
// cache directory is session-scoped: nothing in it survives a restart, and
// the recovery sweep on store open makes sure stale leftovers are unlinked.
package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/saleel/nymdrive/internal/logging"
	"github.com/saleel/nymdrive/internal/models"
	"github.com/saleel/nymdrive/internal/store"
)

// Fetcher downloads and decrypts the content behind a hash.
type Fetcher interface {
	Fetch(ctx context.Context, hash string) ([]byte, error)
}

// Manager materializes decrypted file content on the local disk and tracks
// the resulting paths in the metadata store.
type Manager struct {
	fetcher Fetcher
	store   *store.Store
	dir     string
	log     logging.Logger
}

// New returns a Manager writing decrypted copies under dir.
func New(fetcher Fetcher, st *store.Store, dir string, log logging.Logger) *Manager {
	return &Manager{
		fetcher: fetcher,
		store:   st,
		dir:     dir,
		log:     log.With("component", "cache"),
	}
}

// FetchFile returns a local path holding the decrypted content for hash.
//
// A recorded temporaryLocalPath is returned as-is with no network access:
// content addressing makes the bytes behind a hash immutable, so the memo
// never needs invalidating within a session. Otherwise the content is
// fetched, written under the cache directory by original file name, and the
// path recorded. isFetching is raised for the duration of the download; a
// crash mid-fetch leaves it set until the next session's sweep.
func (m *Manager) FetchFile(ctx context.Context, hash string) (string, error) {
	file, err := m.store.FindByHash(ctx, hash)
	if err != nil {
		return "", err
	}
	if file.TemporaryLocalPath != "" {
		return file.TemporaryLocalPath, nil
	}

	if err := m.store.UpdateFile(ctx, file.ID, &models.FileChanges{
		IsFetching: models.Ptr(true),
	}); err != nil {
		return "", err
	}

	plaintext, err := m.fetcher.Fetch(ctx, hash)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}
	path := filepath.Join(m.dir, file.Name)
	if err := os.WriteFile(path, plaintext, 0o600); err != nil {
		return "", fmt.Errorf("writing cache file %q: %w", path, err)
	}

	if err := m.store.UpdateFile(ctx, file.ID, &models.FileChanges{
		TemporaryLocalPath: models.Ptr(path),
		IsFetching:         models.Ptr(false),
	}); err != nil {
		return "", err
	}

	m.log.Debug(ctx, "content cached", "hash", hash, "path", path)
	return path, nil
}

// Sweep discards the previous session's cache state. Every recorded
// temporaryLocalPath on a STORED record is unlinked and cleared, and any
// isFetching flag left behind by a crash is lowered. Run once per store
// open, before any fetch.
func (m *Manager) Sweep(ctx context.Context) error {
	stored, err := m.store.FindFiles(ctx, store.Filter{
		Status: models.Ptr(models.StatusStored),
	})
	if err != nil {
		return err
	}
	for _, f := range stored {
		if f.TemporaryLocalPath == "" {
			continue
		}
		if err := os.Remove(f.TemporaryLocalPath); err != nil && !os.IsNotExist(err) {
			m.log.Warn(ctx, "removing stale cache file", "path", f.TemporaryLocalPath, "error", err)
		}
		if err := m.store.UpdateFile(ctx, f.ID, &models.FileChanges{
			TemporaryLocalPath: models.Ptr(""),
		}); err != nil {
			return err
		}
	}

	fetching, err := m.store.FindFiles(ctx, store.Filter{
		IsFetching: models.Ptr(true),
	})
	if err != nil {
		return err
	}
	for _, f := range fetching {
		if err := m.store.UpdateFile(ctx, f.ID, &models.FileChanges{
			IsFetching: models.Ptr(false),
		}); err != nil {
			return err
		}
	}

	return nil
}
