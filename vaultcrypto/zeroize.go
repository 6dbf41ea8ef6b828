package vaultcrypto

// SecretBytes wraps a byte slice holding key material or a decrypted secret
// payload so its backing array can be explicitly overwritten once the
// caller is done with it.
//
// A zero-value SecretBytes wraps a nil slice; [SecretBytes.Release] on it
// is a no-op. Copies made via [SecretBytes.String] or similar short-lived
// hand-offs are the caller's responsibility to not retain.
type SecretBytes struct {
	b []byte
}

// NewSecretBytes wraps b. The returned value takes ownership of b's backing
// array; callers must not retain their own reference to it.
func NewSecretBytes(b []byte) SecretBytes {
	return SecretBytes{b: b}
}

// Bytes returns the wrapped slice. The returned slice aliases the internal
// buffer and becomes invalid after [SecretBytes.Release].
func (s SecretBytes) Bytes() []byte {
	return s.b
}

// String copies the wrapped bytes into a new string. The copy is not
// tracked by this type and is the caller's responsibility to keep
// short-lived.
func (s SecretBytes) String() string {
	return string(s.b)
}

// Len reports the length of the wrapped slice.
func (s SecretBytes) Len() int {
	return len(s.b)
}

// Release overwrites the backing array with zeros so the secret no longer
// lingers in process memory after the caller is done with it.
func (s *SecretBytes) Release() {
	if s == nil {
		return
	}

	Zero(s.b)
	s.b = nil
}

// Zero overwrites every byte of b in place. Safe to call on a nil or empty
// slice.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
