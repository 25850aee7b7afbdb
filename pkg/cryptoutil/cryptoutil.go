package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

var key []byte

// ErrNotInitialized is returned when Encrypt/Decrypt run before Initialize.
var ErrNotInitialized = errors.New("encryption key not initialized")

// Initialize sets the AES key. The key must be 16, 24 or 32 bytes.
func Initialize(k string) error {
	switch len(k) {
	case 16, 24, 32:
		key = []byte(k)
		return nil
	}
	return errors.New("encryption key must be 16, 24 or 32 bytes")
}

// Encrypt seals plaintext with AES-GCM. The random nonce is prepended to
// the ciphertext and the whole blob is base64-encoded.
func Encrypt(plaintext string) (string, error) {
	if key == nil {
		return "", ErrNotInitialized
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func Decrypt(encoded string) (string, error) {
	if key == nil {
		return "", ErrNotInitialized
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(data) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
