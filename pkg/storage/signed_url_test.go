package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("documents/doc-1/v1-file.pdf", 0)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	key, parsedExpiry, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "documents/doc-1/v1-file.pdf", key)
	assert.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("a/b", 0)
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, err = signer.Parse(token)
	assert.EqualError(t, err, "token expired")
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("a/b", 0)
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Minute)
	_, _, err = other.Parse(token)
	assert.Error(t, err)

	_, _, err = signer.Parse("not-a-token")
	assert.Error(t, err)
}
