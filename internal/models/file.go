// Package models defines the record types shared between the metadata
// store, the wire format, and the sync engine.
package models

import "time"

// Status tracks a file's progress through the store pipeline.
type Status string

const (
	// StatusPending marks a file created locally and not yet uploaded.
	StatusPending Status = "PENDING"
	// StatusStored marks a file acknowledged by the blob service.
	StatusStored Status = "STORED"
)

// TypeFolder is the record type of folders. Any other value is a MIME type.
const TypeFolder = "FOLDER"

// FileRecord is one entry in the per-device metadata store.
//
// The ID starts out as a provisional path+name key and is reassigned to the
// content hash once the file is stored; after that point the record must be
// looked up by hash. SystemPath and TemporaryLocalPath are only meaningful
// on the device that recorded them and are stripped from snapshots sent to
// other devices.
type FileRecord struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Path               string    `json:"path"`
	SystemPath         string    `json:"systemPath,omitempty"`
	Size               int64     `json:"size"`
	Type               string    `json:"type"`
	Status             Status    `json:"status,omitempty"`
	EncryptionKey      string    `json:"encryptionKey,omitempty"`
	Hash               string    `json:"hash,omitempty"`
	StoredPath         string    `json:"storedPath,omitempty"`
	TemporaryLocalPath string    `json:"temporaryLocalPath,omitempty"`
	IsFetching         bool      `json:"isFetching,omitempty"`
	IsFavorite         bool      `json:"isFavorite,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// IsFolder reports whether the record represents a folder.
func (r *FileRecord) IsFolder() bool {
	return r.Type == TypeFolder
}

// SnapshotFile is the sanitized cross-device view of a FileRecord, used in
// join-protocol snapshots and FILE_UPDATE broadcasts. Device-local fields
// are deliberately absent.
type SnapshotFile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Path          string `json:"path"`
	Size          int64  `json:"size"`
	Type          string `json:"type"`
	Status        Status `json:"status,omitempty"`
	EncryptionKey string `json:"encryptionKey,omitempty"`
	Hash          string `json:"hash,omitempty"`
}

// Sanitized returns the cross-device view of the record.
func (r *FileRecord) Sanitized() SnapshotFile {
	return SnapshotFile{
		ID:            r.ID,
		Name:          r.Name,
		Path:          r.Path,
		Size:          r.Size,
		Type:          r.Type,
		Status:        r.Status,
		EncryptionKey: r.EncryptionKey,
		Hash:          r.Hash,
	}
}

// Record converts a snapshot entry back into a local FileRecord, stamping
// both timestamps with now.
func (s SnapshotFile) Record(now time.Time) *FileRecord {
	return &FileRecord{
		ID:            s.ID,
		Name:          s.Name,
		Path:          s.Path,
		Size:          s.Size,
		Type:          s.Type,
		Status:        s.Status,
		EncryptionKey: s.EncryptionKey,
		Hash:          s.Hash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
