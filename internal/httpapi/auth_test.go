package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"conversation-runtime/server/internal/models"
)

func TestValidateUserSignup_Valid(t *testing.T) {
	err := validateUserSignup(&models.UserSignup{Email: "a@b.com", Password: "longenough", FullName: "Ada"})
	assert.NoError(t, err)
}

func TestValidateUserSignup_RejectsBadEmail(t *testing.T) {
	err := validateUserSignup(&models.UserSignup{Email: "not-an-email", Password: "longenough", FullName: "Ada"})
	assert.Error(t, err)
}

func TestValidateUserSignup_RejectsShortPassword(t *testing.T) {
	err := validateUserSignup(&models.UserSignup{Email: "a@b.com", Password: "short", FullName: "Ada"})
	assert.Error(t, err)
}

func TestValidateUserSignup_RejectsShortName(t *testing.T) {
	err := validateUserSignup(&models.UserSignup{Email: "a@b.com", Password: "longenough", FullName: "A"})
	assert.Error(t, err)
}

func TestValidateUserCredentials_Valid(t *testing.T) {
	err := validateUserCredentials(&models.UserCredentials{Email: "a@b.com", Password: "longenough"})
	assert.NoError(t, err)
}

func TestValidateUserUpdate_EmptyIsAllowed(t *testing.T) {
	err := validateUserUpdate(&models.UserUpdate{})
	assert.NoError(t, err)
}

func TestValidateUserUpdate_RejectsShortName(t *testing.T) {
	err := validateUserUpdate(&models.UserUpdate{FullName: "A"})
	assert.Error(t, err)
}
