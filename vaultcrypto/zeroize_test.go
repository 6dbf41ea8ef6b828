package vaultcrypto_test

import (
	"testing"

	"github.com/hxhippy/pwgen/vaultcrypto"
)

func TestSecretBytes_Release(t *testing.T) {
	b := []byte("super-secret-key-material-000000")

	sb := vaultcrypto.NewSecretBytes(b)
	if got := sb.Len(); got != len(b) {
		t.Fatalf("Len() = %d, want %d", got, len(b))
	}

	sb.Release()

	for i, c := range b {
		if c != 0 {
			t.Fatalf("byte %d not zeroed: %q", i, c)
		}
	}

	if got := sb.Bytes(); got != nil {
		t.Fatalf("Bytes() after Release() = %v, want nil", got)
	}
}

func TestAESGCM_SealOpenBlob(t *testing.T) {
	key := make([]byte, vaultcrypto.KeySize)
	for i := range key {
		key[i] = byte(i)
	}

	aes, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		t.Fatalf("NewAESGCM: %v", err)
	}

	plaintext := []byte("hunter2")

	blob, err := aes.SealBlob(plaintext)
	if err != nil {
		t.Fatalf("SealBlob: %v", err)
	}

	if len(blob) != vaultcrypto.NonceSizeGCM+len(plaintext)+vaultcrypto.TagSize {
		t.Fatalf("blob length = %d, want %d", len(blob), vaultcrypto.NonceSizeGCM+len(plaintext)+vaultcrypto.TagSize)
	}

	got, err := aes.OpenBlob(blob)
	if err != nil {
		t.Fatalf("OpenBlob: %v", err)
	}

	if string(got) != string(plaintext) {
		t.Fatalf("OpenBlob() = %q, want %q", got, plaintext)
	}

	blob[0] ^= 0xFF

	if _, err := aes.OpenBlob(blob); err == nil {
		t.Fatal("OpenBlob() with tampered nonce: want error, got nil")
	}
}

func TestAESGCM_NonceUniqueness(t *testing.T) {
	key := make([]byte, vaultcrypto.KeySize)

	aes, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		t.Fatalf("NewAESGCM: %v", err)
	}

	const n = 5000

	seen := make(map[string]struct{}, n)

	for i := 0; i < n; i++ {
		blob, err := aes.SealBlob([]byte("x"))
		if err != nil {
			t.Fatalf("SealBlob: %v", err)
		}

		nonce := string(blob[:vaultcrypto.NonceSizeGCM])
		if _, ok := seen[nonce]; ok {
			t.Fatalf("nonce collision after %d encryptions", i)
		}

		seen[nonce] = struct{}{}
	}
}
