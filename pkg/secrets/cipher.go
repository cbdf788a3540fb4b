package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

// scrypt parameters for key derivation. The salt is fixed: the secret is
// process configuration, not a user password, and the derived key must be
// stable across restarts to decrypt previously stored tokens.
const (
	scryptN = 32768
	scryptR = 8
	scryptP = 1
	keyLen  = 32
)

var keySalt = []byte("assistme-token-cipher-v1")

// TokenCipher encrypts token material at rest with AES-256-GCM.
// Ciphertext format: base64url(nonce || sealed).
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher derives the AES key from the configured secret
func NewTokenCipher(secret string) (*TokenCipher, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is required")
	}

	key, err := scrypt.Key([]byte(secret), keySalt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("derive cipher key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &TokenCipher{aead: aead}, nil
}

// Encrypt seals a plaintext token
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Malformed, truncated, or
// foreign-key ciphertext returns types.ErrDecryption; corrupted plaintext is
// never returned.
func (c *TokenCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %s", types.ErrDecryption, "malformed encoding")
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("%w: %s", types.ErrDecryption, "truncated ciphertext")
	}

	plaintext, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s", types.ErrDecryption, "authentication failed")
	}

	return string(plaintext), nil
}
