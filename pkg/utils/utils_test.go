package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	password := "testpassword"
	hashedPassword, err := HashPasswordWithCost(password, bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEmpty(t, hashedPassword)
	assert.NotEqual(t, password, hashedPassword)

	cost, err := bcrypt.Cost([]byte(hashedPassword))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestCheckPasswordHash(t *testing.T) {
	password := "testpassword"
	hashedPassword, _ := HashPasswordWithCost(password, bcrypt.MinCost)

	assert.True(t, CheckPasswordHash(password, hashedPassword))
	assert.False(t, CheckPasswordHash("wrongpassword", hashedPassword))
	assert.False(t, CheckPasswordHash(password, "not-a-hash"))
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("test@example.com"))
	assert.True(t, IsEmail("another.test@sub.domain.co.uk"))

	assert.False(t, IsEmail("invalid-email"))
	assert.False(t, IsEmail("@example.com"))
	assert.False(t, IsEmail(""))
	assert.False(t, IsEmail("Bob <bob@example.com>"))
}
