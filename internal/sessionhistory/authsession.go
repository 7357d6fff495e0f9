package sessionhistory

import (
	"database/sql"
	"time"

	"conversation-runtime/server/internal/errors"
	"conversation-runtime/server/internal/models"
	"github.com/google/uuid"
)

// CreateAuthSession issues a new bearer session row. tokenHash is the
// already-hashed token; the raw token is never persisted.
func (db *DB) CreateAuthSession(userID uuid.UUID, tokenHash string, userAgent, ipAddress string) (*models.UserSession, error) {
	session := &models.UserSession{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     tokenHash,
		ExpiresAt: time.Now().Add(24 * time.Hour),
		CreatedAt: time.Now(),
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}

	query := `
		INSERT INTO auth_sessions (id, user_id, token_hash, expires_at, created_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, expires_at`

	err := db.QueryRow(
		query,
		session.ID,
		session.UserID,
		session.Token,
		session.ExpiresAt,
		session.CreatedAt,
		StringToNullString(session.UserAgent),
		StringToNullString(session.IPAddress),
	).Scan(&session.ID, &session.CreatedAt, &session.ExpiresAt)

	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseError)
	}

	return session, nil
}

// GetAuthSessionByToken retrieves a live session by its token hash.
func (db *DB) GetAuthSessionByToken(tokenHash string) (*models.UserSession, error) {
	session := &models.UserSession{}
	var userAgent, ipAddress sql.NullString

	query := `
		SELECT id, user_id, token_hash, expires_at, created_at, user_agent, ip_address
		FROM auth_sessions
		WHERE token_hash = $1 AND expires_at > NOW()`

	err := db.QueryRow(query, tokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.ExpiresAt,
		&session.CreatedAt,
		&userAgent,
		&ipAddress,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(errors.ErrUnauthorized, "invalid or expired session")
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseError)
	}

	session.UserAgent = NullStringToString(userAgent)
	session.IPAddress = NullStringToString(ipAddress)

	return session, nil
}

// DeleteAuthSession deletes one session (logout).
func (db *DB) DeleteAuthSession(tokenHash string) error {
	query := `DELETE FROM auth_sessions WHERE token_hash = $1`

	result, err := db.Exec(query, tokenHash)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseError)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseError)
	}

	if rowsAffected == 0 {
		return errors.New(errors.ErrResourceNotFound, "session not found")
	}

	return nil
}

// DeleteUserAuthSessions deletes every session belonging to a user
// (logout-everywhere).
func (db *DB) DeleteUserAuthSessions(userID uuid.UUID) error {
	query := `DELETE FROM auth_sessions WHERE user_id = $1`

	_, err := db.Exec(query, userID)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseError)
	}

	return nil
}

// ExtendAuthSession pushes a session's expiry out by duration.
func (db *DB) ExtendAuthSession(tokenHash string, duration time.Duration) error {
	query := `
		UPDATE auth_sessions
		SET expires_at = NOW() + $2::interval
		WHERE token_hash = $1 AND expires_at > NOW()`

	result, err := db.Exec(query, tokenHash, duration.String())
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseError)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseError)
	}

	if rowsAffected == 0 {
		return errors.New(errors.ErrUnauthorized, "invalid or expired session")
	}

	return nil
}
