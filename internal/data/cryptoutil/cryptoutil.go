package cryptoutil

// Package cryptoutil encrypts the shared simple-auth password so policy
// storage never holds it in plaintext. The key is derived on demand from
// server-held secrets and is never persisted.

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Encryptor encrypts and decrypts credential material.
type Encryptor interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// ErrMalformedCiphertext is wrapped by Decrypt failures caused by input
// that cannot possibly decrypt (bad prefix, bad base64, truncated).
var ErrMalformedCiphertext = errors.New("malformed ciphertext")

const (
	// Versioned prefix to allow future key/algorithm rotations without
	// re-encrypting stored policies.
	cipherPrefixV1 = "v1:"
	// degradedPrefix marks values written by DegradedEncryptor. It is a
	// reversible encoding, not encryption.
	degradedPrefix = "plain:"
)

// DeriveKey derives the fixed-length AES-256 key from the configured
// server secrets: SHA-256 over their concatenation. At least one non-empty
// secret is required.
func DeriveKey(secrets []string) ([]byte, error) {
	var joined strings.Builder
	for _, s := range secrets {
		joined.WriteString(s)
	}
	if joined.Len() == 0 {
		return nil, errors.New("no secret material configured")
	}
	sum := sha256.Sum256([]byte(joined.String()))
	return sum[:], nil
}

// AESGCMEncryptor implements Encryptor using AES-256-GCM with a fresh
// random nonce per call, stored as a prefix of the payload.
type AESGCMEncryptor struct {
	key []byte // 32 bytes
}

// NewAESGCMEncryptor constructs an AESGCMEncryptor. Key must be 32 bytes.
func NewAESGCMEncryptor(key []byte) (*AESGCMEncryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("aes-gcm key must be 32 bytes, got %d", len(key))
	}
	return &AESGCMEncryptor{key: append([]byte(nil), key...)}, nil
}

// Encrypt encrypts plaintext and returns a versioned base64 string.
// Nonces are never reused: each call draws a fresh one from crypto/rand.
func (e *AESGCMEncryptor) Encrypt(plaintext []byte) (string, error) {
	gcm, err := e.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, readErr := io.ReadFull(rand.Reader, nonce); readErr != nil {
		return "", readErr
	}
	ct := gcm.Seal(nil, nonce, plaintext, nil)
	buf := make([]byte, 0, len(nonce)+len(ct))
	buf = append(buf, nonce...)
	buf = append(buf, ct...)
	return cipherPrefixV1 + base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt decrypts a versioned base64 string created by Encrypt. It also
// accepts degraded-mode values so policies written while no key was
// configured stay readable after one is.
func (e *AESGCMEncryptor) Decrypt(ciphertext string) ([]byte, error) {
	if strings.HasPrefix(ciphertext, degradedPrefix) {
		return DegradedEncryptor{}.Decrypt(ciphertext)
	}
	if !strings.HasPrefix(ciphertext, cipherPrefixV1) {
		return nil, fmt.Errorf("%w: unknown version prefix", ErrMalformedCiphertext)
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext[len(cipherPrefixV1):])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCiphertext, err)
	}
	gcm, err := e.aead()
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, fmt.Errorf("%w: too short", ErrMalformedCiphertext)
	}
	nonce, ct := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	pt, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCiphertext, err)
	}
	return pt, nil
}

func (e *AESGCMEncryptor) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// DegradedEncryptor is the fallback when no usable key material is
// configured. It base64-encodes with a marker prefix and provides no
// confidentiality; callers must log loudly when selecting it.
type DegradedEncryptor struct{}

func (DegradedEncryptor) Encrypt(plaintext []byte) (string, error) {
	return degradedPrefix + base64.StdEncoding.EncodeToString(plaintext), nil
}

func (DegradedEncryptor) Decrypt(ciphertext string) ([]byte, error) {
	if !strings.HasPrefix(ciphertext, degradedPrefix) {
		return nil, fmt.Errorf("%w: not a degraded-mode value", ErrMalformedCiphertext)
	}
	pt, err := base64.StdEncoding.DecodeString(ciphertext[len(degradedPrefix):])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCiphertext, err)
	}
	return pt, nil
}
