package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/saleel/nymdrive/internal/common"
	"github.com/saleel/nymdrive/internal/dbx"
	"github.com/saleel/nymdrive/internal/models"
)

const fileColumns = `id, name, path, system_path, size, type, status, encryption_key,
	hash, stored_path, temporary_local_path, is_fetching, is_favorite, created_at, updated_at`

// fileRepo holds the SQL for the files table. It operates on a DBTX so the
// same queries run inside and outside transactions.
type fileRepo struct {
	db dbx.DBTX
}

func scanFile(scan func(dest ...any) error) (*models.FileRecord, error) {
	r := &models.FileRecord{}
	var isFetching, isFavorite int
	err := scan(&r.ID, &r.Name, &r.Path, &r.SystemPath, &r.Size, &r.Type, &r.Status,
		&r.EncryptionKey, &r.Hash, &r.StoredPath, &r.TemporaryLocalPath,
		&isFetching, &isFavorite, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.IsFetching = isFetching != 0
	r.IsFavorite = isFavorite != 0
	return r, nil
}

func (f *fileRepo) insert(ctx context.Context, r *models.FileRecord) error {
	query := `INSERT INTO files (` + fileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := f.db.ExecContext(ctx, query,
		r.ID, r.Name, r.Path, r.SystemPath, r.Size, r.Type, r.Status,
		r.EncryptionKey, r.Hash, r.StoredPath, r.TemporaryLocalPath,
		boolToInt(r.IsFetching), boolToInt(r.IsFavorite), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert file %q: %w", r.ID, err)
	}
	return nil
}

func (f *fileRepo) upsert(ctx context.Context, r *models.FileRecord) error {
	query := `INSERT INTO files (` + fileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			path = excluded.path,
			system_path = excluded.system_path,
			size = excluded.size,
			type = excluded.type,
			status = excluded.status,
			encryption_key = excluded.encryption_key,
			hash = excluded.hash,
			stored_path = excluded.stored_path,
			temporary_local_path = excluded.temporary_local_path,
			is_fetching = excluded.is_fetching,
			is_favorite = excluded.is_favorite,
			updated_at = excluded.updated_at`
	_, err := f.db.ExecContext(ctx, query,
		r.ID, r.Name, r.Path, r.SystemPath, r.Size, r.Type, r.Status,
		r.EncryptionKey, r.Hash, r.StoredPath, r.TemporaryLocalPath,
		boolToInt(r.IsFetching), boolToInt(r.IsFavorite), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert file %q: %w", r.ID, err)
	}
	return nil
}

func (f *fileRepo) findByID(ctx context.Context, id string) (*models.FileRecord, error) {
	row := f.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	r, err := scanFile(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %q: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find file %q: %w", id, err)
	}
	return r, nil
}

func (f *fileRepo) findByHash(ctx context.Context, hash string) (*models.FileRecord, error) {
	row := f.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE hash = ? LIMIT 1`, hash)
	r, err := scanFile(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("hash %q: %w", hash, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find file by hash %q: %w", hash, err)
	}
	return r, nil
}

// Filter selects file records; nil fields match everything.
type Filter struct {
	Path       *string
	Status     *models.Status
	Type       *string
	IsFavorite *bool
	IsFetching *bool
}

func (f *fileRepo) find(ctx context.Context, q Filter) ([]*models.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files`
	var conds []string
	var args []any

	if q.Path != nil {
		conds, args = append(conds, "path = ?"), append(args, *q.Path)
	}
	if q.Status != nil {
		conds, args = append(conds, "status = ?"), append(args, *q.Status)
	}
	if q.Type != nil {
		conds, args = append(conds, "type = ?"), append(args, *q.Type)
	}
	if q.IsFavorite != nil {
		conds, args = append(conds, "is_favorite = ?"), append(args, boolToInt(*q.IsFavorite))
	}
	if q.IsFetching != nil {
		conds, args = append(conds, "is_fetching = ?"), append(args, boolToInt(*q.IsFetching))
	}

	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at, id"

	rows, err := f.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.FileRecord
	for rows.Next() {
		r, err := scanFile(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (f *fileRepo) remove(ctx context.Context, id string) error {
	res, err := f.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("file %q: %w", id, common.ErrNotFound)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
