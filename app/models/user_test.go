package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	user, err := CreateUser("Avery Lane", "avery@studio.example", "correct-horse")
	require.NoError(t, err)

	assert.Equal(t, ROLE_OWNER, user.Role)
	assert.Equal(t, STATUS_ACTIVE, user.Status)
	assert.NotEqual(t, "correct-horse", user.Password, "password must be stored hashed")
	assert.True(t, CheckPasswordHash("correct-horse", user.Password))
	assert.False(t, CheckPasswordHash("wrong", user.Password))
}

func TestCreateUser_Validation(t *testing.T) {
	_, err := CreateUser("A", "avery@studio.example", "correct-horse")
	assert.Error(t, err, "short name must fail validation")

	_, err = CreateUser("Avery Lane", "not-an-email", "correct-horse")
	assert.Error(t, err, "invalid email must fail validation")

	_, err = CreateUser("Avery Lane", "avery@studio.example", "short")
	assert.Error(t, err, "short password must fail validation")
}
