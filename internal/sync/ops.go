package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/saleel/nymdrive/internal/models"
	"github.com/saleel/nymdrive/internal/store"
	"github.com/saleel/nymdrive/internal/wire"
)

// CreateFile registers a local file under the given logical path and uploads
// it. The record starts PENDING under a provisional id derived from path and
// name; the pipeline reassigns it to the content hash. A pending file with
// the same name under the same path is rejected, since the provisional ids
// would collide.
func (c *Coordinator) CreateFile(ctx context.Context, systemPath, path string) (*models.FileRecord, error) {
	info, err := os.Stat(systemPath)
	if err != nil {
		return nil, fmt.Errorf("inspecting %q: %w", systemPath, err)
	}
	mtype, err := mimetype.DetectFile(systemPath)
	if err != nil {
		return nil, fmt.Errorf("detecting type of %q: %w", systemPath, err)
	}

	name := filepath.Base(systemPath)
	rec := &models.FileRecord{
		ID:         path + name,
		Name:       name,
		Path:       path,
		SystemPath: systemPath,
		Size:       info.Size(),
		Type:       mtype.String(),
		Status:     models.StatusPending,
	}

	c.mu.Lock()
	if _, err := c.store.FindByID(ctx, rec.ID); err == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("a pending file named %q already exists under %q", name, path)
	}
	if err := c.store.Insert(ctx, rec); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	return c.upload(ctx, rec)
}

// CreateFolder creates a folder record. Folders carry no content: no hash,
// no status, no upload. Peers learn of the folder through the usual change
// broadcast.
func (c *Coordinator) CreateFolder(ctx context.Context, name, path string) (*models.FileRecord, error) {
	rec := &models.FileRecord{
		ID:   uuid.NewString(),
		Name: name,
		Path: path,
		Type: models.TypeFolder,
	}
	if err := c.store.Insert(ctx, rec); err != nil {
		return nil, err
	}
	c.broadcastChange(ctx, rec.ID, rec.Sanitized().Changes())
	return rec, nil
}

// DeleteFile removes the blob from the storage service and then the local
// record. The record survives a failed remote removal so the delete can be
// retried.
func (c *Coordinator) DeleteFile(ctx context.Context, hash string) error {
	rec, err := c.store.FindByHash(ctx, hash)
	if err != nil {
		return err
	}
	if err := c.pipe.Remove(ctx, hash); err != nil {
		return err
	}
	return c.store.Remove(ctx, rec.ID)
}

// DeleteFileLocally unlinks the origin file on this device. The record and
// the remote blob are untouched; the content remains fetchable.
func (c *Coordinator) DeleteFileLocally(ctx context.Context, hash string) error {
	rec, err := c.store.FindByHash(ctx, hash)
	if err != nil {
		return err
	}
	if rec.SystemPath == "" {
		return nil
	}
	if err := os.Remove(rec.SystemPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %q: %w", rec.SystemPath, err)
	}
	return nil
}

// ShareFile sends the record's key and content address to another device.
// The recipient can fetch and decrypt without involving this device again,
// so the share itself is fire-and-forget.
func (c *Coordinator) ShareFile(ctx context.Context, hash, recipient string) error {
	rec, err := c.store.FindByHash(ctx, hash)
	if err != nil {
		return err
	}
	return c.tr.Send(ctx, &wire.Payload{
		Action:        wire.ActionShare,
		EncryptionKey: rec.EncryptionKey,
		Hash:          rec.Hash,
		Name:          rec.Name,
		Size:          rec.Size,
		Type:          rec.Type,
	}, recipient)
}

// FetchFile returns a local path holding the decrypted content for hash,
// downloading it if no cached copy exists.
func (c *Coordinator) FetchFile(ctx context.Context, hash string) (string, error) {
	return c.cache.FetchFile(ctx, hash)
}

// SetFolderFavorite marks a folder as a favorite.
func (c *Coordinator) SetFolderFavorite(ctx context.Context, id string) error {
	return c.store.UpdateFile(ctx, id, &models.FileChanges{IsFavorite: models.Ptr(true)})
}

// RemoveFolderFavorite clears a folder's favorite mark.
func (c *Coordinator) RemoveFolderFavorite(ctx context.Context, id string) error {
	return c.store.UpdateFile(ctx, id, &models.FileChanges{IsFavorite: models.Ptr(false)})
}

// FavoriteFolders lists the folders marked as favorites.
func (c *Coordinator) FavoriteFolders(ctx context.Context) ([]*models.FileRecord, error) {
	return c.store.FindFiles(ctx, store.Filter{
		Type:       models.Ptr(models.TypeFolder),
		IsFavorite: models.Ptr(true),
	})
}
