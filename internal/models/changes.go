package models

// FileChanges is a partial update applied to a FileRecord. Nil fields are
// left untouched; a pointer to the zero value clears the field. The same
// shape travels inside FILE_UPDATE messages, which is why clearable fields
// are pointers rather than bare values.
type FileChanges struct {
	ID                 *string `json:"id,omitempty"`
	Name               *string `json:"name,omitempty"`
	Path               *string `json:"path,omitempty"`
	Size               *int64  `json:"size,omitempty"`
	Type               *string `json:"type,omitempty"`
	Status             *Status `json:"status,omitempty"`
	EncryptionKey      *string `json:"encryptionKey,omitempty"`
	Hash               *string `json:"hash,omitempty"`
	StoredPath         *string `json:"storedPath,omitempty"`
	TemporaryLocalPath *string `json:"temporaryLocalPath,omitempty"`
	IsFetching         *bool   `json:"isFetching,omitempty"`
	IsFavorite         *bool   `json:"isFavorite,omitempty"`
}

// Apply merges the non-nil fields into the record.
func (c *FileChanges) Apply(r *FileRecord) {
	if c.ID != nil {
		r.ID = *c.ID
	}
	if c.Name != nil {
		r.Name = *c.Name
	}
	if c.Path != nil {
		r.Path = *c.Path
	}
	if c.Size != nil {
		r.Size = *c.Size
	}
	if c.Type != nil {
		r.Type = *c.Type
	}
	if c.Status != nil {
		r.Status = *c.Status
	}
	if c.EncryptionKey != nil {
		r.EncryptionKey = *c.EncryptionKey
	}
	if c.Hash != nil {
		r.Hash = *c.Hash
	}
	if c.StoredPath != nil {
		r.StoredPath = *c.StoredPath
	}
	if c.TemporaryLocalPath != nil {
		r.TemporaryLocalPath = *c.TemporaryLocalPath
	}
	if c.IsFetching != nil {
		r.IsFetching = *c.IsFetching
	}
	if c.IsFavorite != nil {
		r.IsFavorite = *c.IsFavorite
	}
}

// Ptr returns a pointer to v. Shorthand for building FileChanges literals.
func Ptr[T any](v T) *T {
	return &v
}

// Changes expresses a snapshot entry as a FileChanges, the shape broadcast
// to peer devices after a local change.
func (s SnapshotFile) Changes() *FileChanges {
	c := &FileChanges{
		ID:   Ptr(s.ID),
		Name: Ptr(s.Name),
		Path: Ptr(s.Path),
		Size: Ptr(s.Size),
		Type: Ptr(s.Type),
	}
	if s.Status != "" {
		c.Status = Ptr(s.Status)
	}
	if s.EncryptionKey != "" {
		c.EncryptionKey = Ptr(s.EncryptionKey)
	}
	if s.Hash != "" {
		c.Hash = Ptr(s.Hash)
	}
	return c
}
