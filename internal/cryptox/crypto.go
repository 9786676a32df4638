// Package cryptox seals third-party credentials before they are written to
// the relational store: a key-derivation function (argon2id) turns the
// operator-supplied secret into an AES key, and Seal/Open wrap AES-GCM.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/argon2"
)

// DeriveKey derives a 32-byte AES key from an operator secret and a salt
// using argon2id. The same secret and salt always yield the same key, so
// sealed values survive process restarts.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

// Seal encrypts plaintext with AES-GCM under key. The random nonce is
// prepended to the returned ciphertext.
func Seal(plaintext, key []byte) ([]byte, error) {
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

	return append(nonce, aesgcm.Seal(nil, nonce, plaintext, nil)...), nil
}

// Open decrypts a value produced by Seal with the same key.
func Open(sealed, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(sealed) < aesgcm.NonceSize() {
		return nil, errors.New("sealed value too short")
	}

	nonce, ciphertext := sealed[:aesgcm.NonceSize()], sealed[aesgcm.NonceSize():]
	return aesgcm.Open(nil, nonce, ciphertext, nil)
}
