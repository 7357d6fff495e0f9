package httpapi

import (
	"sync"

	"github.com/google/uuid"

	"conversation-runtime/server/internal/errors"
)

// ownerRegistry tracks which user loaded which live session, mirroring the
// teacher's CheckConversationOwnership check but for in-memory sessions
// rather than a conversations table: it answers "which caller owns this
// session" without a database round trip.
type ownerRegistry struct {
	mu     sync.RWMutex
	owners map[string]uuid.UUID
}

func newOwnerRegistry() *ownerRegistry {
	return &ownerRegistry{owners: map[string]uuid.UUID{}}
}

func (o *ownerRegistry) set(sessionID string, userID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.owners[sessionID] = userID
}

func (o *ownerRegistry) forget(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.owners, sessionID)
}

// parseSessionUUID parses a runtime session id (always uuid.New().String())
// into a uuid.UUID for internal/sessionhistory, whose tables key on it.
func parseSessionUUID(sessionID string) (uuid.UUID, error) {
	return uuid.Parse(sessionID)
}

// checkOwnership returns an AppError if sessionID exists under a different
// owner than userID. An unregistered sessionID is allowed through — it
// means the session predates this process's ownership tracking (e.g. a
// snapshot restore), and the session lookup itself will 404 if it truly
// doesn't exist.
func (o *ownerRegistry) checkOwnership(sessionID string, userID uuid.UUID) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	owner, ok := o.owners[sessionID]
	if !ok {
		return nil
	}
	if owner != userID {
		return errors.New(errors.ErrForbidden, "session belongs to another user")
	}
	return nil
}
