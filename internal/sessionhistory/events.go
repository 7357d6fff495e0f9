package sessionhistory

import (
	"context"
	"encoding/json"

	"conversation-runtime/server/internal/errors"
	"conversation-runtime/server/internal/models"
	"github.com/google/uuid"
)

// AppendEvent archives one entry of a session's event contract for later
// replay or analytics. The live SSE stream never reads this back; its only
// caller is the data-ready handler in internal/httpapi.
func (db *DB) AppendEvent(ctx context.Context, sessionID uuid.UUID, name string, payload interface{}) (*models.SessionEvent, error) {
	var payloadJSON []byte
	var err error
	if payload != nil {
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrBadRequest)
		}
	}

	query := `
		INSERT INTO session_events (session_id, name, payload)
		VALUES ($1, $2, $3)
		RETURNING id, session_id, name, payload, created_at
	`

	var event models.SessionEvent
	var payloadStr []byte

	err = db.QueryRowContext(ctx, query, sessionID, name, payloadJSON).Scan(
		&event.ID,
		&event.SessionID,
		&event.Name,
		&payloadStr,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseError)
	}

	if len(payloadStr) > 0 {
		if err := json.Unmarshal(payloadStr, &event.Payload); err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabaseError)
		}
	}

	return &event, nil
}

// ListEvents returns a session's archived event log in order, for replay.
func (db *DB) ListEvents(ctx context.Context, sessionID uuid.UUID) ([]models.SessionEvent, error) {
	query := `
		SELECT id, session_id, name, payload, created_at
		FROM session_events
		WHERE session_id = $1
		ORDER BY created_at ASC
	`

	rows, err := db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseError)
	}
	defer rows.Close()

	var events []models.SessionEvent
	for rows.Next() {
		var event models.SessionEvent
		var payloadStr []byte
		if err := rows.Scan(&event.ID, &event.SessionID, &event.Name, &payloadStr, &event.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrDatabaseError)
		}
		if len(payloadStr) > 0 {
			if err := json.Unmarshal(payloadStr, &event.Payload); err != nil {
				return nil, errors.Wrap(err, errors.ErrDatabaseError)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseError)
	}

	return events, nil
}
