package cryptoutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeRejectsBadKeyLength(t *testing.T) {
	assert.Error(t, Initialize("too-short"))
	assert.NoError(t, Initialize("0123456789abcdef"))
	assert.NoError(t, Initialize("0123456789abcdef0123456789abcdef"))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	require.NoError(t, Initialize("0123456789abcdef0123456789abcdef"))

	plaintext := "12345678901"
	encrypted, err := Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, encrypted)

	decrypted, err := Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	require.NoError(t, Initialize("0123456789abcdef0123456789abcdef"))

	first, err := Encrypt("same input")
	require.NoError(t, err)
	second, err := Encrypt("same input")
	require.NoError(t, err)

	// Same plaintext must never produce the same blob twice.
	assert.NotEqual(t, first, second)

	for _, blob := range []string{first, second} {
		decrypted, err := Decrypt(blob)
		require.NoError(t, err)
		assert.Equal(t, "same input", decrypted)
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	require.NoError(t, Initialize("0123456789abcdef0123456789abcdef"))

	_, err := Decrypt("not-base64!!!")
	assert.Error(t, err)

	_, err = Decrypt("YWJj") // valid base64, shorter than a nonce
	assert.Error(t, err)
}
