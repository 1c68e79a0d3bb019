package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saleel/nymdrive/internal/common"
	"github.com/saleel/nymdrive/internal/logging"
	"github.com/saleel/nymdrive/internal/models"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func openStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2021, 11, 1, 12, 0, 0, 0, time.UTC))
	s := New(t.TempDir(), testLogger(), clock)
	t.Cleanup(func() { _ = s.Close() })

	s.Open(context.Background(), "device1.relay")
	return s, clock
}

func TestStore_ReadinessBarrier(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(t.TempDir(), testLogger(), clock)
	t.Cleanup(func() { _ = s.Close() })

	// An operation issued before Open must suspend, not fail.
	type result struct {
		files []*models.FileRecord
		err   error
	}
	done := make(chan result, 1)
	go func() {
		files, err := s.FindFiles(context.Background(), Filter{})
		done <- result{files, err}
	}()

	select {
	case <-done:
		t.Fatal("operation completed before the store was opened")
	case <-time.After(50 * time.Millisecond):
	}

	s.Open(context.Background(), "device1.relay")

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Empty(t, res.files)
	case <-time.After(5 * time.Second):
		t.Fatal("operation never unblocked after open")
	}
}

func TestStore_ReadinessBarrierHonorsContext(t *testing.T) {
	s := New(t.TempDir(), testLogger(), clockwork.NewFakeClock())
	t.Cleanup(func() { _ = s.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.FindFiles(ctx, Filter{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStore_InsertAndFind(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	rec := &models.FileRecord{
		ID:         "/docsreport.pdf",
		Name:       "report.pdf",
		Path:       "/docs",
		SystemPath: "/home/u/report.pdf",
		Size:       10,
		Type:       "application/pdf",
		Status:     models.StatusPending,
	}
	require.NoError(t, s.Insert(ctx, rec))
	assert.False(t, rec.CreatedAt.IsZero(), "timestamps stamped on insert")

	got, err := s.FindByID(ctx, "/docsreport.pdf")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got.Name)
	assert.Equal(t, models.StatusPending, got.Status)

	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestStore_FindFilesFilters(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &models.FileRecord{ID: "a", Name: "a", Path: "/docs", Status: models.StatusPending, Type: "text/plain"}))
	require.NoError(t, s.Insert(ctx, &models.FileRecord{ID: "b", Name: "b", Path: "/docs", Status: models.StatusStored, Type: "text/plain", Hash: "hb"}))
	require.NoError(t, s.Insert(ctx, &models.FileRecord{ID: "c", Name: "c", Path: "/pics", Status: models.StatusPending, Type: models.TypeFolder, IsFavorite: true}))

	pending, err := s.FindFiles(ctx, Filter{Status: models.Ptr(models.StatusPending)})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	docs, err := s.FindFiles(ctx, Filter{Path: models.Ptr("/docs"), Status: models.Ptr(models.StatusStored)})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].ID)

	favs, err := s.FindFiles(ctx, Filter{IsFavorite: models.Ptr(true)})
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "c", favs[0].ID)
}

func TestStore_UpdateFile_MergesExisting(t *testing.T) {
	s, clock := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &models.FileRecord{ID: "id1", Name: "a.txt", Path: "/x", Status: models.StatusPending}))
	created, err := s.FindByID(ctx, "id1")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	require.NoError(t, s.UpdateFile(ctx, "id1", &models.FileChanges{
		Status: models.Ptr(models.StatusStored),
		Hash:   models.Ptr("h1"),
	}))

	got, err := s.FindByID(ctx, "id1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusStored, got.Status)
	assert.Equal(t, "h1", got.Hash)
	assert.Equal(t, "a.txt", got.Name, "unmentioned fields untouched")
	assert.True(t, got.UpdatedAt.After(created.UpdatedAt), "updatedAt refreshed")
}

func TestStore_UpdateFile_CreatesMissing(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateFile(ctx, "h9", &models.FileChanges{
		Name:   models.Ptr("peer.txt"),
		Path:   models.Ptr("/shared"),
		Status: models.Ptr(models.StatusStored),
		Hash:   models.Ptr("h9"),
	}))

	got, err := s.FindByID(ctx, "h9")
	require.NoError(t, err)
	assert.Equal(t, "peer.txt", got.Name)
	assert.Equal(t, models.StatusStored, got.Status)
}

func TestStore_UpdateFile_IDReassignment(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &models.FileRecord{ID: "/docsa.txt", Name: "a.txt", Path: "/docs", Status: models.StatusPending}))

	require.NoError(t, s.UpdateFile(ctx, "/docsa.txt", &models.FileChanges{
		ID:            models.Ptr("hash1"),
		Hash:          models.Ptr("hash1"),
		EncryptionKey: models.Ptr("deadbeef"),
	}))

	// The provisional id is gone; the record lives under the hash now.
	_, err := s.FindByID(ctx, "/docsa.txt")
	assert.ErrorIs(t, err, common.ErrNotFound)

	got, err := s.FindByID(ctx, "hash1")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.Name)
	assert.Equal(t, "hash1", got.Hash)

	byHash, err := s.FindByHash(ctx, "hash1")
	require.NoError(t, err)
	assert.Equal(t, "hash1", byHash.ID)
}

func TestStore_InsertSnapshot(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	snapshot := []models.SnapshotFile{
		{ID: "h1", Name: "one.txt", Path: "/a", Size: 1, Type: "text/plain", Status: models.StatusStored, Hash: "h1", EncryptionKey: "k1"},
		{ID: "h2", Name: "two.txt", Path: "/b", Size: 2, Type: "text/plain", Status: models.StatusStored, Hash: "h2", EncryptionKey: "k2"},
	}
	require.NoError(t, s.InsertSnapshot(ctx, snapshot))

	files, err := s.FindFiles(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, files, 2)

	// Ingesting the same snapshot again upserts instead of failing.
	require.NoError(t, s.InsertSnapshot(ctx, snapshot))
	files, err = s.FindFiles(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestStore_Remove(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &models.FileRecord{ID: "x", Name: "x", Path: "/"}))
	require.NoError(t, s.Remove(ctx, "x"))
	_, err := s.FindByID(ctx, "x")
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, s.Remove(ctx, "x"), common.ErrNotFound)
}

func TestStore_DeviceRegistry(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	devices, err := s.Devices(ctx)
	require.NoError(t, err)
	assert.Empty(t, devices)

	require.NoError(t, s.AddDevice(ctx, "peer1.relay"))
	require.NoError(t, s.AddDevice(ctx, "peer2.relay"))
	// Append-only and idempotent.
	require.NoError(t, s.AddDevice(ctx, "peer1.relay"))

	devices, err = s.Devices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "peer1.relay", devices[0].Address)
	assert.Equal(t, "peer2.relay", devices[1].Address)
}
