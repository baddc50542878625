package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// SnapshotRecord is a durable row for a Chronicle snapshot (spec.md §6:
// `{..., chronicle: base64String}`). RoomID scopes snapshots when one
// process hosts many rooms.
type SnapshotRecord struct {
	RoomID    string
	Chronicle string // base64
	SavedAt   time.Time
}

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save upserts the latest snapshot for a room.
func (r *SnapshotRepo) Save(ctx context.Context, roomID, chronicle string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO chronicle_snapshot (room_id, chronicle, saved_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (room_id) DO UPDATE SET chronicle = EXCLUDED.chronicle, saved_at = EXCLUDED.saved_at`,
		roomID, chronicle,
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the most recent snapshot for a room, or ok=false if none exists.
func (r *SnapshotRepo) Load(ctx context.Context, roomID string) (rec SnapshotRecord, ok bool, err error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT room_id, chronicle, saved_at FROM chronicle_snapshot WHERE room_id = $1`,
		roomID,
	)
	if scanErr := row.Scan(&rec.RoomID, &rec.Chronicle, &rec.SavedAt); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return SnapshotRecord{}, false, nil
		}
		return SnapshotRecord{}, false, fmt.Errorf("load snapshot: %w", scanErr)
	}
	return rec, true, nil
}
