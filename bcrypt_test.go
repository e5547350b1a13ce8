package gatekeeper_test

import (
	"strings"
	"testing"

	"github.com/sahayak-app/gatekeeper"
	"github.com/stretchr/testify/assert"
)

func TestHashPassword(t *testing.T) {
	t.Run("produces a verifiable digest", func(t *testing.T) {
		hash, err := gatekeeper.HashPassword("secret1")

		assert.NoError(t, err)
		assert.NotEmpty(t, hash)
		assert.True(t, strings.HasPrefix(hash, "$2"))
		assert.NoError(t, gatekeeper.ComparePasswordAndHash("secret1", hash))
	})

	t.Run("two digests of the same password differ", func(t *testing.T) {
		first, err := gatekeeper.HashPassword("secret1")
		assert.NoError(t, err)

		second, err := gatekeeper.HashPassword("secret1")
		assert.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		hash, err := gatekeeper.HashPassword("")

		assert.Empty(t, hash)
		assert.ErrorIs(t, err, gatekeeper.ErrEmptyPassword)
	})
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := gatekeeper.HashPassword("secret1")
	assert.NoError(t, err)

	t.Run("mismatch yields invalid credentials", func(t *testing.T) {
		err := gatekeeper.ComparePasswordAndHash("wrong", hash)

		assert.ErrorIs(t, err, gatekeeper.ErrInvalidCredentials)
	})

	t.Run("unparseable digest yields malformed digest", func(t *testing.T) {
		err := gatekeeper.ComparePasswordAndHash("secret1", "not-a-bcrypt-digest")

		assert.ErrorIs(t, err, gatekeeper.ErrMalformedDigest)
	})
}
