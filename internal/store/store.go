// Package store implements the durable per-device metadata store: one
// SQLite database per device identity holding file records and the device
// registry.
//
// The store is loaded asynchronously; every operation suspends the caller
// behind a one-shot readiness barrier until the load has completed. There
// is no timeout on the barrier itself, but every operation takes a context
// so a caller can bound its own wait.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/saleel/nymdrive/internal/common"
	"github.com/saleel/nymdrive/internal/dbx"
	"github.com/saleel/nymdrive/internal/logging"
	"github.com/saleel/nymdrive/internal/models"
	"github.com/saleel/nymdrive/internal/store/migrations"
)

// Store is the metadata store for one device identity.
type Store struct {
	dir   string
	log   logging.Logger
	clock clockwork.Clock

	mu      sync.Mutex
	db      *sql.DB
	address string
	ready   chan struct{}
	loadErr error

	files   *fileRepo
	devices *deviceRepo
}

// New returns a Store that will keep its database files under dir. The
// store is unusable until Open has completed a load; operations issued
// before that suspend on the readiness barrier.
func New(dir string, log logging.Logger, clock clockwork.Clock) *Store {
	return &Store{
		dir:   dir,
		log:   log.With("component", "store"),
		clock: clock,
		ready: make(chan struct{}),
	}
}

// Open starts loading the database scoped to the given device address. The
// load runs in the background; Open returns immediately. Reopening for the
// same address is a no-op.
func (s *Store) Open(ctx context.Context, address string) {
	s.mu.Lock()
	if s.address == address && s.db != nil {
		s.mu.Unlock()
		return
	}
	s.address = address
	s.mu.Unlock()

	go s.load(ctx, address)
}

func (s *Store) load(ctx context.Context, address string) {
	dsn := filepath.Join(s.dir, "nymdrive-"+fileSafe(address)+".db")

	db, err := sql.Open("sqlite", dsn)
	if err == nil {
		err = runMigrations(ctx, db)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.loadErr = fmt.Errorf("loading store %q: %w", dsn, err)
	} else {
		s.db = db
		s.files = &fileRepo{db: db}
		s.devices = &deviceRepo{db: db}
	}

	select {
	case <-s.ready:
	default:
		close(s.ready)
	}

	if err != nil {
		s.log.Error(ctx, "store load failed", "error", err)
	} else {
		s.log.Info(ctx, "store loaded", "path", dsn)
	}
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// awaitReady suspends until the load finishes or ctx is canceled.
func (s *Store) awaitReady(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ready:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Close releases the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Insert adds a new file record, stamping timestamps if unset.
func (s *Store) Insert(ctx context.Context, r *models.FileRecord) error {
	if err := s.awaitReady(ctx); err != nil {
		return err
	}
	now := s.clock.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	return s.files.insert(ctx, r)
}

// InsertSnapshot bulk-ingests a sanitized device snapshot in a single
// transaction, upserting by id.
func (s *Store) InsertSnapshot(ctx context.Context, snapshot []models.SnapshotFile) error {
	if err := s.awaitReady(ctx); err != nil {
		return err
	}
	now := s.clock.Now()

	s.mu.Lock()
	db := s.db
	s.mu.Unlock()

	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := &fileRepo{db: tx}
		for _, sf := range snapshot {
			if err := repo.upsert(ctx, sf.Record(now)); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindFiles returns records matching the filter.
func (s *Store) FindFiles(ctx context.Context, q Filter) ([]*models.FileRecord, error) {
	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}
	return s.files.find(ctx, q)
}

// FindByID returns the record with the given id, or common.ErrNotFound.
func (s *Store) FindByID(ctx context.Context, id string) (*models.FileRecord, error) {
	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}
	return s.files.findByID(ctx, id)
}

// FindByHash returns the first record with the given content hash, or
// common.ErrNotFound.
func (s *Store) FindByHash(ctx context.Context, hash string) (*models.FileRecord, error) {
	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}
	return s.files.findByHash(ctx, hash)
}

// UpdateFile merges the non-nil fields of changes into the record with the
// given id, refreshing updatedAt. If no such record exists, a new one is
// created from the changes directly; that lets inbound peer messages update
// metadata the local store has never seen.
func (s *Store) UpdateFile(ctx context.Context, id string, changes *models.FileChanges) error {
	if err := s.awaitReady(ctx); err != nil {
		return err
	}
	now := s.clock.Now()

	s.mu.Lock()
	db := s.db
	s.mu.Unlock()

	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := &fileRepo{db: tx}

		rec, err := repo.findByID(ctx, id)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if err == nil {
			changes.Apply(rec)
			rec.UpdatedAt = now
			// The id reassignment from provisional key to content hash moves
			// the row to a new primary key.
			if rec.ID != id {
				if err := repo.remove(ctx, id); err != nil {
					return err
				}
			}
			return repo.upsert(ctx, rec)
		}

		rec = &models.FileRecord{ID: id, CreatedAt: now, UpdatedAt: now}
		changes.Apply(rec)
		if rec.ID == "" {
			rec.ID = id
		}
		return repo.upsert(ctx, rec)
	})
}

// Remove deletes the record with the given id.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.awaitReady(ctx); err != nil {
		return err
	}
	return s.files.remove(ctx, id)
}

// AddDevice appends a peer address to the device registry. Membership is
// append-only and idempotent.
func (s *Store) AddDevice(ctx context.Context, address string) error {
	if err := s.awaitReady(ctx); err != nil {
		return err
	}
	return s.devices.add(ctx, address, s.clock.Now())
}

// Devices lists all registered peer addresses.
func (s *Store) Devices(ctx context.Context) ([]models.DeviceRecord, error) {
	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}
	return s.devices.list(ctx)
}

// fileSafe makes a relay address usable as a file name component.
func fileSafe(address string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, address)
}
