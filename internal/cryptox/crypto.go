// Package cryptox provides the symmetric encryption primitives used for
// at-rest protection of vault data: AES-GCM sealing of opaque byte blobs
// and Argon2id key derivation from a user passphrase.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// KeySize is the AES-256 key length produced by DeriveKey.
const KeySize = 32

// DeriveKey derives a 32-byte AES key from a passphrase and salt using
// Argon2id. The same (passphrase, salt) pair always yields the same key.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// MakeVerifier returns a value safe to persist for checking that a derived
// key is correct without storing the key itself.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// Encrypt seals plaintext with AES-GCM under key.
//
// The key must be a valid AES key length (16, 24, or 32 bytes). A fresh
// random nonce is generated per call and prepended to the returned blob,
// so the output is self-contained: pass it back to Decrypt unchanged.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt. It fails if the blob is
// truncated, was sealed under a different key, or was tampered with
// (GCM authentication).
func Decrypt(blob, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(blob) < aesgcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(blob))
	}
	nonce, ciphertext := blob[:aesgcm.NonceSize()], blob[aesgcm.NonceSize():]

	return aesgcm.Open(nil, nonce, ciphertext, nil)
}
