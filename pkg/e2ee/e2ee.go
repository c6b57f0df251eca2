// Package e2ee reads and writes message text the way the browser client
// encrypts it: AES-256-GCM with a key derived from the room secret by
// PBKDF2-SHA256, salted with the room id.
//
// The server itself never decrypts anything; this package exists for
// tooling and tests that need to speak to encrypted rooms.
package e2ee

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"

	"golang.org/x/crypto/pbkdf2"
)

const (
	KeyLength  = 32
	IVLength   = 12
	Iterations = 100000

	DefaultSecretLength = 32
	minSecretLength     = 16
)

var (
	ErrMalformed = errors.New("e2ee: malformed ciphertext")
	ErrDecrypt   = errors.New("e2ee: decryption failed")
)

var hexSecret = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// Key is a derived per-room key. Deriving is deliberately slow, so callers
// handling many messages of one room should derive once and reuse it.
type Key struct {
	aead cipher.AEAD
}

func DeriveKey(roomID, secret string) (*Key, error) {
	raw := pbkdf2.Key([]byte(secret), []byte(roomID), Iterations, KeyLength, sha256.New)

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("e2ee: new cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, IVLength)
	if err != nil {
		return nil, fmt.Errorf("e2ee: new gcm: %w", err)
	}
	return &Key{aead: aead}, nil
}

// Seal returns base64(IV || ciphertext || tag).
func (k *Key) Seal(plaintext string) (string, error) {
	iv := make([]byte, IVLength, IVLength+len(plaintext)+k.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("e2ee: read iv: %w", err)
	}
	out := k.aead.Seal(iv, iv, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (k *Key) Open(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(raw) < IVLength+k.aead.Overhead() {
		return "", ErrMalformed
	}

	plain, err := k.aead.Open(nil, raw[:IVLength], raw[IVLength:], nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

func Encrypt(plaintext, roomID, secret string) (string, error) {
	key, err := DeriveKey(roomID, secret)
	if err != nil {
		return "", err
	}
	return key.Seal(plaintext)
}

func Decrypt(encoded, roomID, secret string) (string, error) {
	key, err := DeriveKey(roomID, secret)
	if err != nil {
		return "", err
	}
	return key.Open(encoded)
}

// GenerateSecret returns length random bytes hex encoded.
func GenerateSecret(length int) (string, error) {
	if length <= 0 {
		length = DefaultSecretLength
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("e2ee: generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func ValidSecret(secret string) bool {
	return len(secret) >= minSecretLength && hexSecret.MatchString(secret)
}
