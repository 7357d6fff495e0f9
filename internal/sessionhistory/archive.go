package sessionhistory

import (
	"context"
	"database/sql"

	"conversation-runtime/server/internal/errors"
	"conversation-runtime/server/internal/models"
	"github.com/google/uuid"
)

// SaveSnapshot archives a session's serialized saved-state JSON, upserting
// by session id so repeated saves of one session overwrite the prior row
// instead of accumulating one per save. (internal/workers' flush job
// writes to internal/sessionstore, not here.)
func (db *DB) SaveSnapshot(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID, storyID, snapshot string) (*models.SessionRecord, error) {
	query := `
		INSERT INTO session_records (id, user_id, story_id, snapshot, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET snapshot = EXCLUDED.snapshot, updated_at = NOW()
		RETURNING id, user_id, story_id, snapshot, created_at, updated_at
	`

	var rec models.SessionRecord
	err := db.QueryRowContext(ctx, query, sessionID, userID, storyID, snapshot).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.StoryID,
		&rec.Snapshot,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseError)
	}

	return &rec, nil
}

// GetSnapshot retrieves the most recently archived snapshot for a session.
func (db *DB) GetSnapshot(ctx context.Context, sessionID uuid.UUID) (*models.SessionRecord, error) {
	query := `
		SELECT id, user_id, story_id, snapshot, created_at, updated_at
		FROM session_records
		WHERE id = $1
	`

	var rec models.SessionRecord
	err := db.QueryRowContext(ctx, query, sessionID).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.StoryID,
		&rec.Snapshot,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(errors.ErrSessionNotFound, "no archived snapshot for session")
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseError)
	}

	return &rec, nil
}

// ListUserSnapshots returns every archived session a user owns, most
// recently updated first — used by a "resume past sessions" host feature.
func (db *DB) ListUserSnapshots(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.SessionRecord, error) {
	query := `
		SELECT id, user_id, story_id, snapshot, created_at, updated_at
		FROM session_records
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseError)
	}
	defer rows.Close()

	var records []models.SessionRecord
	for rows.Next() {
		var rec models.SessionRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.StoryID, &rec.Snapshot, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabaseError)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseError)
	}

	return records, nil
}

// DeleteSnapshot removes an archived session record.
func (db *DB) DeleteSnapshot(ctx context.Context, sessionID uuid.UUID) error {
	query := `DELETE FROM session_records WHERE id = $1`

	result, err := db.ExecContext(ctx, query, sessionID)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseError)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseError)
	}
	if rowsAffected == 0 {
		return errors.New(errors.ErrSessionNotFound, "no archived snapshot for session")
	}

	return nil
}

// CheckSnapshotOwnership verifies a user owns an archived session record.
func (db *DB) CheckSnapshotOwnership(ctx context.Context, sessionID, userID uuid.UUID) error {
	query := `SELECT id FROM session_records WHERE id = $1 AND user_id = $2`

	var id uuid.UUID
	err := db.QueryRowContext(ctx, query, sessionID, userID).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return errors.New(errors.ErrForbidden, "access denied to session")
		}
		return errors.Wrap(err, errors.ErrDatabaseError)
	}

	return nil
}
