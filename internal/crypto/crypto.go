// Package crypto provides AES-256-GCM encryption for tokens stored at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
)

// KeySize is the required key length for AES-256.
const KeySize = 32

var (
	ErrInvalidKeySize   = errors.New("encryption key must be 32 bytes for AES-256")
	ErrMalformedPayload = errors.New("ciphertext shorter than its nonce")
	ErrDecryptionFailed = errors.New("decryption failed: authentication error")
)

// Encryptor seals and opens short secrets. The AEAD is prepared once at
// construction.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor creates an Encryptor from a raw 32-byte key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &Encryptor{aead: aead}, nil
}

// NewEncryptorFromBase64 creates an Encryptor from a base64-encoded key.
func NewEncryptorFromBase64(encodedKey string) (*Encryptor, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode base64 key: %w", err)
	}
	return NewEncryptor(key)
}

// Encrypt seals plaintext and returns base64 ciphertext with the nonce
// prepended. Empty input stays empty.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens base64 ciphertext produced by Encrypt.
func (e *Encryptor) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(sealed) < e.aead.NonceSize() {
		return "", ErrMalformedPayload
	}

	nonce, ciphertext := sealed[:e.aead.NonceSize()], sealed[e.aead.NonceSize():]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// GenerateKey returns a fresh random AES-256 key, base64-encoded.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// LoadOrCreateKey reads the base64 key stored at path, generating and
// persisting a new one (mode 0600) when the file does not exist.
func LoadOrCreateKey(path string) (string, error) {
	if data, err := os.ReadFile(path); err == nil {
		return string(data), nil
	}

	key, err := GenerateKey()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(key), 0600); err != nil {
		return "", fmt.Errorf("save encryption key to %s: %w", path, err)
	}
	return key, nil
}
