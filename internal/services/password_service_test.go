package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordService_HashAndVerify(t *testing.T) {
	svc := NewPasswordService(bcrypt.MinCost)

	hash, err := svc.HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, svc.VerifyPassword(hash, "secret123"))
	assert.False(t, svc.VerifyPassword(hash, "secret124"))
	assert.False(t, svc.VerifyPassword("not-a-hash", "secret123"))
}

func TestPasswordService_GenerateResetToken(t *testing.T) {
	svc := NewPasswordService(bcrypt.MinCost)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		token, err := svc.GenerateResetToken()
		require.NoError(t, err)
		assert.Len(t, token, 40)
		assert.Regexp(t, `^[A-Za-z0-9]+$`, token)
		assert.False(t, seen[token], "token repeated")
		seen[token] = true
	}
}

func TestPasswordService_HashResetToken(t *testing.T) {
	svc := NewPasswordService(0)

	digest := svc.HashResetToken("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", digest)
	assert.Equal(t, digest, svc.HashResetToken("abc"))
	assert.NotEqual(t, digest, svc.HashResetToken("abd"))
}
