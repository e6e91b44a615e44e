package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, err := svc.CreateForUser("alice")
	require.NoError(t, err)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", Subject(claims))
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, err := svc.CreateWithTTL("alice", -time.Minute)
	require.NoError(t, err)

	_, err = svc.Parse(token)
	assert.Error(t, err)
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := NewTokenService("secret-a", time.Hour).CreateForUser("alice")
	require.NoError(t, err)

	_, err = NewTokenService("secret-b", time.Hour).Parse(token)
	assert.Error(t, err)
}

func TestPasswordHashVerify(t *testing.T) {
	hasher := NewPasswordHasher(4)

	hashed, err := hasher.Hash("correct horse battery")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery", hashed)

	assert.NoError(t, hasher.Verify("correct horse battery", hashed))
	assert.Error(t, hasher.Verify("wrong", hashed))
}
