// Package crypto implements the gateway's content confidentiality layer:
// AES-256-GCM authenticated encryption with a PBKDF2-derived per-message key.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/tacedge/gateway/internal/apperr"
)

const (
	nonceSize        = 12 // 96 bits, GCM standard
	keySize          = 32 // 256 bits
	saltSize         = 16 // 128 bits
	pbkdf2Iterations = 100000
)

// Sealed is the base64-encoded output of Encrypt: ciphertext carries the
// salt prepended, per the store-and-forward wire format.
type Sealed struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
	Tag        string `json:"tag"`
}

// Engine derives per-message keys from a master key and performs AES-256-GCM
// seal/open. It holds no per-message state and is safe for concurrent use.
type Engine struct {
	masterKey []byte
}

// NewEngine creates an Engine over masterKey.
func NewEngine(masterKey string) *Engine {
	return &Engine{masterKey: []byte(masterKey)}
}

func deriveKey(masterKey, salt []byte) []byte {
	return pbkdf2.Key(masterKey, salt, pbkdf2Iterations, keySize, sha256.New)
}

// Encrypt seals plaintext with a fresh random salt and nonce.
func (e *Engine) Encrypt(plaintext string) (Sealed, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return Sealed{}, fmt.Errorf("generating salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Sealed{}, fmt.Errorf("generating nonce: %w", err)
	}

	key := deriveKey(e.masterKey, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return Sealed{}, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return Sealed{}, fmt.Errorf("creating GCM: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	tagStart := len(sealed) - gcm.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	ciphertextWithSalt := append(append([]byte{}, salt...), ciphertext...)

	return Sealed{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertextWithSalt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Tag:        base64.StdEncoding.EncodeToString(tag),
	}, nil
}

// Decrypt opens a Sealed value and returns the plaintext. It fails with
// AUTH_FAILED on any authentication error (bad tag, wrong key, truncation).
func (e *Engine) Decrypt(s Sealed) (string, error) {
	ciphertextWithSalt, err := base64.StdEncoding.DecodeString(s.Ciphertext)
	if err != nil {
		return "", apperr.Wrap(apperr.AuthFailed, "message authentication failed", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(s.Nonce)
	if err != nil {
		return "", apperr.Wrap(apperr.AuthFailed, "message authentication failed", err)
	}
	tag, err := base64.StdEncoding.DecodeString(s.Tag)
	if err != nil {
		return "", apperr.Wrap(apperr.AuthFailed, "message authentication failed", err)
	}

	if len(ciphertextWithSalt) < saltSize || len(nonce) != nonceSize {
		return "", apperr.New(apperr.AuthFailed, "message authentication failed")
	}
	salt := ciphertextWithSalt[:saltSize]
	ciphertext := ciphertextWithSalt[saltSize:]

	key := deriveKey(e.masterKey, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM: %w", err)
	}

	sealed := append(append([]byte{}, ciphertext...), tag...)
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.AuthFailed, "message authentication failed", err)
	}

	return string(plaintext), nil
}

// Verify reports whether s decrypts cleanly, without returning the plaintext.
func (e *Engine) Verify(s Sealed) bool {
	_, err := e.Decrypt(s)
	return err == nil
}
