package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCreateUserStartsInactive(t *testing.T) {
	user, err := CreateUser("Bäckerei Schmidt", "info@baeckerei-schmidt.de", "geheim-passwort")
	assert.NoError(t, err)
	assert.Equal(t, STATUS_INACTIVE, user.Status)
	assert.Equal(t, ROLE_USER, user.Role)
	assert.Equal(t, "free", user.Plan)
	assert.True(t, user.CheckPassword("geheim-passwort"))
}

func TestCreateUserValidatesInput(t *testing.T) {
	_, err := CreateUser("ab", "info@laden.de", "geheim-passwort")
	assert.Error(t, err, "name below minimum length")

	_, err = CreateUser("Laden", "keine-mail", "geheim-passwort")
	assert.Error(t, err, "invalid email")
}

func TestSetupTokenLifecycle(t *testing.T) {
	user := &User{}
	assert.False(t, user.IsSetupTokenValid("anything"))

	assert.NoError(t, user.GenerateSetupToken())
	assert.NotEmpty(t, user.SetupToken)
	assert.True(t, user.IsSetupTokenValid(user.SetupToken))
	assert.False(t, user.IsSetupTokenValid("wrong-token"))

	expired := time.Now().Add(-73 * time.Hour)
	user.SetupSentAt = &expired
	assert.False(t, user.IsSetupTokenValid(user.SetupToken))
}
