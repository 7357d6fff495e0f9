// Package auth is the optional host-auth layer: a minimal bearer-session
// guard answering "whose loaded session is this", not a social backend.
// Kept as a concrete dependency on sessionhistory.DB rather than behind
// an interface — there is exactly one persistence backing for user
// accounts and introducing a seam for a single implementation would be
// speculative.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"conversation-runtime/server/internal/errors"
	"conversation-runtime/server/internal/models"
	"conversation-runtime/server/internal/sessionhistory"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service handles signup/login/session-validation for the host-auth layer.
type Service struct {
	db *sessionhistory.DB
}

// NewService creates a new auth service.
func NewService(db *sessionhistory.DB) *Service {
	return &Service{db: db}
}

// HashPassword hashes a plain text password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternalServer)
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a plain text password with a hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateSessionToken generates a secure random bearer token.
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, errors.ErrInternalServer)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// HashToken hashes a token for storage — only the hash is ever persisted.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Signup creates a new host-auth user account. The email's uniqueness is
// enforced by the users table's constraint rather than a preceding
// existence check, so a racing signup for the same address fails cleanly
// instead of both checks passing before either insert commits.
func (s *Service) Signup(signup *models.UserSignup) (*models.User, error) {
	signup.Email = strings.TrimSpace(strings.ToLower(signup.Email))

	passwordHash, err := HashPassword(signup.Password)
	if err != nil {
		return nil, err
	}

	return s.db.CreateUser(signup, passwordHash)
}

// Login authenticates a user and issues a bearer token.
func (s *Service) Login(credentials *models.UserCredentials, userAgent, ipAddress string) (*models.User, string, error) {
	credentials.Email = strings.TrimSpace(strings.ToLower(credentials.Email))

	userID, passwordHash, err := s.db.GetUserPasswordHash(credentials.Email)
	if err != nil {
		return nil, "", err
	}

	if !CheckPasswordHash(credentials.Password, passwordHash) {
		return nil, "", errors.New(errors.ErrUnauthorized, "invalid credentials")
	}

	user, err := s.db.GetUserByID(userID)
	if err != nil {
		return nil, "", err
	}

	token, err := GenerateSessionToken()
	if err != nil {
		return nil, "", err
	}
	tokenHash := HashToken(token)

	if _, err := s.db.CreateAuthSession(user.ID, tokenHash, userAgent, ipAddress); err != nil {
		return nil, "", err
	}

	if err := s.db.UpdateLastLogin(user.ID); err != nil {
		slog.Warn("failed to record last login", "user_id", user.ID, "error", err)
	}

	return user, token, nil
}

// Logout deletes a single bearer session.
func (s *Service) Logout(token string) error {
	return s.db.DeleteAuthSession(HashToken(token))
}

// LogoutAll revokes every session for a user.
func (s *Service) LogoutAll(userID uuid.UUID) error {
	return s.db.DeleteUserAuthSessions(userID)
}

// DeactivateAccount retires a user account: it stops future logins and
// revokes every outstanding bearer token for that user in one step.
func (s *Service) DeactivateAccount(userID uuid.UUID) error {
	return s.db.RetireUser(userID)
}

// ValidateSession checks a bearer token and returns its owning user,
// extending the session's expiry on activity within 12 hours of expiring.
func (s *Service) ValidateSession(token string) (*models.User, error) {
	tokenHash := HashToken(token)

	session, err := s.db.GetAuthSessionByToken(tokenHash)
	if err != nil {
		return nil, err
	}

	if session.ExpiresAt.Before(time.Now()) {
		s.db.DeleteAuthSession(tokenHash)
		return nil, errors.New(errors.ErrUnauthorized, "session expired")
	}

	user, err := s.db.GetUserByID(session.UserID)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, errors.New(errors.ErrForbidden, "account deactivated")
	}

	if time.Until(session.ExpiresAt) < 12*time.Hour {
		s.db.ExtendAuthSession(tokenHash, 24*time.Hour)
	}

	return user, nil
}

// UpdateProfile updates a user's profile fields.
func (s *Service) UpdateProfile(userID uuid.UUID, update *models.UserUpdate) error {
	return s.db.UpdateUser(userID, update)
}

// Profile retrieves a user's public-facing profile.
func (s *Service) Profile(userID uuid.UUID) (*models.UserProfile, error) {
	user, err := s.db.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	return &models.UserProfile{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
		LastLogin: user.LastLogin,
	}, nil
}

// ExtractBearerToken extracts the token from an Authorization header.
func ExtractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New(errors.ErrUnauthorized, "missing authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New(errors.ErrUnauthorized, "invalid authorization header format")
	}

	return parts[1], nil
}
