package credentials

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, version, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.Equal(t, HashVersionBcrypt, version)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, VerifyPassword(hash, "correct horse"))
	assert.Error(t, VerifyPassword(hash, "wrong horse"))
}

func TestHashPasswordLength(t *testing.T) {
	_, _, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, _, err = HashPassword(strings.Repeat("p", MaxPasswordLen+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}
