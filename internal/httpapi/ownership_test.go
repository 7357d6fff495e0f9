package httpapi

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerRegistry_UnregisteredSessionPassesThrough(t *testing.T) {
	reg := newOwnerRegistry()
	err := reg.checkOwnership("unknown-session", uuid.New())
	assert.NoError(t, err)
}

func TestOwnerRegistry_SameOwnerAllowed(t *testing.T) {
	reg := newOwnerRegistry()
	userID := uuid.New()
	reg.set("s1", userID)

	assert.NoError(t, reg.checkOwnership("s1", userID))
}

func TestOwnerRegistry_DifferentOwnerRejected(t *testing.T) {
	reg := newOwnerRegistry()
	reg.set("s1", uuid.New())

	err := reg.checkOwnership("s1", uuid.New())
	require.Error(t, err)
}

func TestOwnerRegistry_ForgetRemovesOwnership(t *testing.T) {
	reg := newOwnerRegistry()
	owner := uuid.New()
	reg.set("s1", owner)
	reg.forget("s1")

	assert.NoError(t, reg.checkOwnership("s1", uuid.New()))
}

func TestParseSessionUUID_RoundTrip(t *testing.T) {
	id := uuid.New()
	parsed, err := parseSessionUUID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseSessionUUID_InvalidInput(t *testing.T) {
	_, err := parseSessionUUID("not-a-uuid")
	assert.Error(t, err)
}
