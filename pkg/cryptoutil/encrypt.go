// Package cryptoutil encrypts vault blobs with AES-256-GCM using per-file
// keys derived from a master key.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32

// DeriveKey derives a per-file AES key from the master key and a file-unique
// salt (the content hash serves well: identical content re-encrypts under
// the same key, which is harmless because the IV is random per seal).
func DeriveKey(masterKey []byte, salt string) ([]byte, error) {
	kdf := hkdf.New(sha256.New, masterKey, []byte(salt), []byte("docvault-file-key"))
	key := make([]byte, keySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// Seal encrypts plaintext and returns ciphertext plus the random IV.
func Seal(key, plaintext []byte) (ciphertext, iv []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	iv = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, err
	}
	return gcm.Seal(nil, iv, plaintext, nil), iv, nil
}

// Open decrypts ciphertext produced by Seal.
func Open(key, ciphertext, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}
