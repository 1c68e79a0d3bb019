package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitized_StripsDeviceLocalFields(t *testing.T) {
	r := &FileRecord{
		ID:                 "abc123",
		Name:               "report.pdf",
		Path:               "/docs",
		SystemPath:         "/home/user/report.pdf",
		Size:               10,
		Type:               "application/pdf",
		Status:             StatusStored,
		EncryptionKey:      "deadbeef",
		Hash:               "abc123",
		StoredPath:         "bafy...",
		TemporaryLocalPath: "/tmp/report.pdf",
		IsFetching:         true,
	}

	s := r.Sanitized()

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "systemPath")
	assert.NotContains(t, string(b), "temporaryLocalPath")
	assert.NotContains(t, string(b), "storedPath")
	assert.NotContains(t, string(b), "isFetching")

	assert.Equal(t, "abc123", s.ID)
	assert.Equal(t, "deadbeef", s.EncryptionKey)
}

func TestSnapshotFile_Record(t *testing.T) {
	now := time.Date(2021, 11, 1, 0, 0, 0, 0, time.UTC)
	s := SnapshotFile{ID: "h1", Name: "a.txt", Path: "/x", Size: 3, Type: "text/plain", Status: StatusStored, Hash: "h1"}

	r := s.Record(now)
	assert.Equal(t, "h1", r.ID)
	assert.Equal(t, StatusStored, r.Status)
	assert.Equal(t, now, r.CreatedAt)
	assert.Equal(t, now, r.UpdatedAt)
	assert.Empty(t, r.SystemPath)
}

func TestFileChanges_Apply(t *testing.T) {
	r := &FileRecord{ID: "old", Name: "a.txt", Status: StatusPending, TemporaryLocalPath: "/tmp/a"}

	c := &FileChanges{
		ID:                 Ptr("newhash"),
		Status:             Ptr(StatusStored),
		TemporaryLocalPath: Ptr(""),
	}
	c.Apply(r)

	assert.Equal(t, "newhash", r.ID)
	assert.Equal(t, StatusStored, r.Status)
	assert.Empty(t, r.TemporaryLocalPath, "pointer to zero value clears the field")
	assert.Equal(t, "a.txt", r.Name, "nil fields stay untouched")
}

func TestFileChanges_JSONRoundTrip(t *testing.T) {
	c := &FileChanges{Hash: Ptr("h"), IsFetching: Ptr(false)}

	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hash":"h","isFetching":false}`, string(b))

	var got FileChanges
	require.NoError(t, json.Unmarshal(b, &got))
	require.NotNil(t, got.IsFetching)
	assert.False(t, *got.IsFetching)
	assert.Nil(t, got.Status)
}

func TestIsFolder(t *testing.T) {
	assert.True(t, (&FileRecord{Type: TypeFolder}).IsFolder())
	assert.False(t, (&FileRecord{Type: "text/plain"}).IsFolder())
}
