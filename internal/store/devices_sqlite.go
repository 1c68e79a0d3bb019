package store

import (
	"context"
	"fmt"
	"time"

	"github.com/saleel/nymdrive/internal/dbx"
	"github.com/saleel/nymdrive/internal/models"
)

// deviceRepo holds the SQL for the append-only device registry.
type deviceRepo struct {
	db dbx.DBTX
}

// add records a trusted peer address. Re-adding an existing address is a
// no-op, which makes registration idempotent under replayed messages.
func (d *deviceRepo) add(ctx context.Context, address string, addedAt time.Time) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO devices (address, added_at) VALUES (?, ?)
		 ON CONFLICT(address) DO NOTHING`, address, addedAt)
	if err != nil {
		return fmt.Errorf("failed to add device %q: %w", address, err)
	}
	return nil
}

func (d *deviceRepo) list(ctx context.Context) ([]models.DeviceRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT address, added_at FROM devices ORDER BY added_at, address`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var result []models.DeviceRecord
	for rows.Next() {
		var rec models.DeviceRecord
		if err := rows.Scan(&rec.Address, &rec.AddedAt); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
