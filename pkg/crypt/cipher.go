package crypt

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fernet/fernet-go"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// Salt is the fixed PBKDF2 salt shared with the wallet daemon's
	// provisioning tools. Every installation derives the same key from the
	// same secret.
	Salt = "decimal_sdk_salt"
	// Iterations is the PBKDF2 iteration count.
	Iterations = 100_000
	// KeySize is the derived key length: a 16-byte signing key followed by a
	// 16-byte AES-128 key.
	KeySize = 32
)

// noTTL disables token expiry checks in fernet.VerifyAndDecrypt.
const noTTL time.Duration = -1

var (
	// ErrDecryptionFailed is returned when a token is malformed, was
	// tampered with, or was produced under a different key.
	ErrDecryptionFailed = errors.New("decryption failed")
	// ErrEmptySecret is returned by NewCipher for an empty secret.
	ErrEmptySecret = errors.New("encryption secret must not be empty")
	// ErrCipherClosed is returned by a Cipher after Close.
	ErrCipherClosed = errors.New("cipher is closed")
)

// Cipher encrypts secrets with Fernet tokens under a single key. It is safe
// for concurrent use.
type Cipher struct {
	mu  sync.RWMutex
	key *fernet.Key
}

// DeriveKey stretches secret into a Fernet key with PBKDF2-HMAC-SHA256.
func DeriveKey(secret string) fernet.Key {
	var key fernet.Key
	copy(key[:], pbkdf2.Key([]byte(secret), []byte(Salt), Iterations, KeySize, sha256.New))
	return key
}

// NewCipher returns a Cipher keyed by DeriveKey(secret).
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	key := DeriveKey(secret)
	return &Cipher{key: &key}, nil
}

// NewCipherFromKey returns a Cipher for an already provisioned key in
// standard or URL-safe base64 form, such as the output of GenerateKey or a
// key derived by another Fernet client.
func NewCipherFromKey(encoded string) (*Cipher, error) {
	key, err := fernet.DecodeKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	return &Cipher{key: key}, nil
}

// GenerateKey returns a fresh random key encoded as URL-safe base64.
func GenerateKey() (string, error) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return key.Encode(), nil
}

// Encrypt returns the Fernet token for plaintext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.key == nil {
		return "", ErrCipherClosed
	}

	tok, err := fernet.EncryptAndSign([]byte(plaintext), c.key)
	if err != nil {
		return "", fmt.Errorf("encryption failed: %w", err)
	}
	return string(tok), nil
}

// Decrypt verifies token and returns its plaintext. Tokens never expire.
func (c *Cipher) Decrypt(token string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.key == nil {
		return "", ErrCipherClosed
	}

	msg := fernet.VerifyAndDecrypt([]byte(token), noTTL, []*fernet.Key{c.key})
	if msg == nil {
		return "", ErrDecryptionFailed
	}
	return string(msg), nil
}

// Close zeroes the key material. Subsequent calls fail with ErrCipherClosed.
func (c *Cipher) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key == nil {
		return
	}
	for i := range c.key {
		c.key[i] = 0
	}
	c.key = nil
}
