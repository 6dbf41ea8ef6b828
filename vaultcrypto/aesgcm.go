package vaultcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// Sizes mandated by the AEAD contract: 256-bit key, 96-bit nonce, 128-bit tag.
const (
	KeySize      = 32
	NonceSizeGCM = 12
	TagSize      = 16
)

var ErrNilAESGCM = errors.New("AESGCM is nil")

// ErrBlobTooShort indicates an encrypted blob is too small to contain a nonce.
var ErrBlobTooShort = errors.New("encrypted blob shorter than a nonce")

// AESGCM wraps an [cipher.AEAD] using AES in GCM mode.
type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCM creates a new AES-GCM cipher using the provided key.
func NewAESGCM(key []byte) (*AESGCM, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &AESGCM{aesgcm}, nil
}

// Seal encrypts the plaintext using the given nonce.
func (g *AESGCM) Seal(nonce, plaintext []byte) ([]byte, error) {
	if g == nil {
		return nil, ErrNilAESGCM
	}

	return g.aead.Seal(nil, nonce, plaintext, nil), nil
}

// Open decrypts the ciphertext using the given nonce.
func (g *AESGCM) Open(nonce, ciphertext []byte) ([]byte, error) {
	if g == nil {
		return nil, ErrNilAESGCM
	}

	return g.aead.Open(nil, nonce, ciphertext, nil)
}

// AEAD returns the underlying cipher.AEAD instance.
func (g *AESGCM) AEAD() cipher.AEAD {
	return g.aead
}

// SealBlob draws a fresh random nonce, encrypts plaintext under it, and
// returns the on-disk representation nonce ∥ ciphertext ∥ tag.
//
// Callers must never supply their own nonce; a new one is drawn from the
// process-wide CSPRNG on every call so that no nonce is ever reused with
// the same key.
func (g *AESGCM) SealBlob(plaintext []byte) ([]byte, error) {
	if g == nil {
		return nil, ErrNilAESGCM
	}

	nonce, err := RandBytes(NonceSizeGCM)
	if err != nil {
		return nil, fmt.Errorf("seal blob: %w", err)
	}

	sealed, err := g.Seal(nonce, plaintext)
	if err != nil {
		return nil, fmt.Errorf("seal blob: %w", err)
	}

	return append(nonce, sealed...), nil
}

// OpenBlob splits a nonce ∥ ciphertext ∥ tag blob produced by [AESGCM.SealBlob]
// and decrypts it.
func (g *AESGCM) OpenBlob(blob []byte) ([]byte, error) {
	if g == nil {
		return nil, ErrNilAESGCM
	}

	if len(blob) < NonceSizeGCM {
		return nil, ErrBlobTooShort
	}

	nonce, ciphertext := blob[:NonceSizeGCM], blob[NonceSizeGCM:]

	plaintext, err := g.Open(nonce, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}

	return plaintext, nil
}
