package sessionhistory

import (
	"database/sql"
	"time"

	"conversation-runtime/server/internal/errors"
	"conversation-runtime/server/internal/models"
	"github.com/google/uuid"
)

const userColumns = `id, email, full_name, created_at, updated_at, last_login, is_active`

// scanUser reads one users row matching userColumns into a models.User. Both
// identity lookups below (by email, by id) share this instead of repeating
// the column list and null-handling twice.
func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLogin,
		&user.IsActive,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(errors.ErrResourceNotFound, "user not found")
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseError)
	}

	user.LastLogin = NullTimeToTime(lastLogin)
	return user, nil
}

// CreateUser inserts a new host-auth user. Conflicting emails are detected
// by the unique constraint rather than a separate existence check, so
// signup is a single round trip to Postgres instead of check-then-insert.
func (db *DB) CreateUser(user *models.UserSignup, passwordHash string) (*models.User, error) {
	newUser := &models.User{
		ID:        uuid.New(),
		Email:     user.Email,
		FullName:  user.FullName,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	query := `
		INSERT INTO users (id, email, password_hash, full_name, created_at, updated_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, created_at, updated_at`

	err := db.QueryRow(
		query,
		newUser.ID,
		newUser.Email,
		passwordHash,
		newUser.FullName,
		newUser.CreatedAt,
		newUser.UpdatedAt,
		newUser.IsActive,
	).Scan(&newUser.ID, &newUser.CreatedAt, &newUser.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(errors.ErrValidationFailed, "email already exists")
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseError)
	}

	return newUser, nil
}

// GetUserByEmail retrieves a user by their email address.
func (db *DB) GetUserByEmail(email string) (*models.User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserByID retrieves a user by their ID.
func (db *DB) GetUserByID(userID uuid.UUID) (*models.User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// GetUserPasswordHash retrieves the id and password hash for an active
// user, used only during login.
func (db *DB) GetUserPasswordHash(email string) (uuid.UUID, string, error) {
	var userID uuid.UUID
	var passwordHash string

	query := `SELECT id, password_hash FROM users WHERE email = $1 AND is_active = true`

	err := db.QueryRow(query, email).Scan(&userID, &passwordHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return uuid.Nil, "", errors.New(errors.ErrUnauthorized, "invalid credentials")
		}
		return uuid.Nil, "", errors.Wrap(err, errors.ErrDatabaseError)
	}

	return userID, passwordHash, nil
}

// UpdateUser updates a user's profile information.
func (db *DB) UpdateUser(userID uuid.UUID, update *models.UserUpdate) error {
	query := `
		UPDATE users
		SET full_name = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := db.Exec(query, userID, update.FullName)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseError)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseError)
	}

	if rowsAffected == 0 {
		return errors.New(errors.ErrResourceNotFound, "user not found")
	}

	return nil
}

// UpdateLastLogin updates the user's last login timestamp.
func (db *DB) UpdateLastLogin(userID uuid.UUID) error {
	query := `UPDATE users SET last_login = NOW() WHERE id = $1`

	_, err := db.Exec(query, userID)
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseError)
	}

	return nil
}

// RetireUser deactivates an account and revokes every bearer session it
// owns in one transaction. A user who loses access to their loaded
// conversation sessions should not keep a live token that can still read
// them, so deactivation and session revocation happen atomically rather
// than as two independent writes a caller could interleave with a login.
func (db *DB) RetireUser(userID uuid.UUID) error {
	return db.Transaction(func(tx *sql.Tx) error {
		result, err := tx.Exec(`UPDATE users SET is_active = false, updated_at = NOW() WHERE id = $1`, userID)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabaseError)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabaseError)
		}
		if rowsAffected == 0 {
			return errors.New(errors.ErrResourceNotFound, "user not found")
		}

		if _, err := tx.Exec(`DELETE FROM auth_sessions WHERE user_id = $1`, userID); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseError)
		}

		return nil
	})
}

// CheckEmailExists checks whether an email is already registered, used by
// the signup form's live availability check before the user submits.
func (db *DB) CheckEmailExists(email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	err := db.QueryRow(query, email).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrDatabaseError)
	}

	return exists, nil
}
