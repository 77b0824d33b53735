// Package cryptox implements password-based text encryption with
// AES-256-GCM and an argon2id-derived key.
//
// A token is base64(salt || nonce || ciphertext || tag) using standard padded
// base64. The salt is random per token, so the same plaintext and password
// never produce the same token twice.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"

	apperrors "secdash/internal/errors"
)

const (
	SaltSize  = 16
	NonceSize = 12
	KeySize   = 32
	TagSize   = 16
)

// KDFParams are the argon2id costs used to derive the AES key. Memory is in KiB.
type KDFParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
}

// DefaultKDFParams: 64 MiB, three passes, four lanes.
var DefaultKDFParams = KDFParams{Memory: 64 * 1024, Iterations: 3, Parallelism: 4}

// Cipher encrypts and decrypts text tokens. It is safe for concurrent use.
type Cipher struct {
	params KDFParams
}

// New creates a Cipher with the given key derivation costs.
func New(params KDFParams) *Cipher {
	return &Cipher{params: params}
}

// Encrypt seals plaintext under a key derived from password.
func (c *Cipher) Encrypt(plaintext, password string) (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: salt: %v", apperrors.ErrKeyDerivationFailed, err)
	}
	return c.seal([]byte(plaintext), password, salt)
}

func (c *Cipher) seal(plaintext []byte, password string, salt []byte) (string, error) {
	aead, err := c.aead(password, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%w: nonce: %v", apperrors.ErrKeyDerivationFailed, err)
	}

	out := make([]byte, 0, SaltSize+NonceSize+len(plaintext)+TagSize)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens a token produced by Encrypt.
func (c *Cipher) Decrypt(token, password string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return "", fmt.Errorf("%w: not base64", apperrors.ErrMalformedToken)
	}
	if len(raw) < SaltSize+NonceSize+TagSize {
		return "", fmt.Errorf("%w: %d bytes is too short", apperrors.ErrMalformedToken, len(raw))
	}

	salt := raw[:SaltSize]
	nonce := raw[SaltSize : SaltSize+NonceSize]
	sealed := raw[SaltSize+NonceSize:]

	aead, err := c.aead(password, salt)
	if err != nil {
		return "", err
	}
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", apperrors.ErrAuthenticationFailed
	}
	if !utf8.Valid(plaintext) {
		return "", apperrors.ErrNonUTF8Plaintext
	}
	return string(plaintext), nil
}

func (c *Cipher) aead(password string, salt []byte) (cipher.AEAD, error) {
	if c.params.Memory == 0 || c.params.Iterations == 0 || c.params.Parallelism == 0 {
		return nil, fmt.Errorf("%w: invalid parameters", apperrors.ErrKeyDerivationFailed)
	}
	key := argon2.IDKey([]byte(password), salt, c.params.Iterations, c.params.Memory, c.params.Parallelism, KeySize)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrKeyDerivationFailed, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrKeyDerivationFailed, err)
	}
	return aead, nil
}
