package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hxhippy/pwgen/vaulterrors"
)

// VaultMeta holds the per-vault key-derivation material persisted
// alongside the encrypted data: the Argon2id salt, the PHC-encoded KDF
// parameters, and the sealed verifier checked at unlock time.
type VaultMeta struct {
	MasterSalt         []byte
	VerifierNonce      []byte
	VerifierCiphertext []byte
	KDFPHC             string
}

const selectMeta = `
	SELECT master_salt, verifier_nonce, verifier_ciphertext, kdf_phc
	FROM vault_meta
	WHERE id = 0
`

// Meta loads the vault's key-derivation metadata. It returns
// [vaulterrors.ErrNotFound] if the vault has not been initialized.
func (s *Store) Meta(ctx context.Context) (VaultMeta, error) {
	var m VaultMeta

	row := s.exec.QueryRowContext(ctx, selectMeta)
	if err := row.Scan(&m.MasterSalt, &m.VerifierNonce, &m.VerifierCiphertext, &m.KDFPHC); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return VaultMeta{}, vaulterrors.New(vaulterrors.KindNotFound, "meta", err)
		}

		return VaultMeta{}, vaulterrors.New(vaulterrors.KindIO, "meta", err)
	}

	return m, nil
}

const insertMeta = `
	INSERT INTO vault_meta (id, master_salt, verifier_nonce, verifier_ciphertext, kdf_phc)
	VALUES (0, ?, ?, ?, ?)
`

// SaveMeta persists the vault's key-derivation metadata. It fails with
// [vaulterrors.ErrDuplicate] if the vault has already been initialized.
func (s *Store) SaveMeta(ctx context.Context, m VaultMeta) error {
	if _, err := s.exec.ExecContext(ctx, insertMeta, m.MasterSalt, m.VerifierNonce, m.VerifierCiphertext, m.KDFPHC); err != nil {
		return vaulterrors.New(vaulterrors.KindDuplicate, "save_meta", err)
	}

	return nil
}

// Initialized reports whether vault_meta has already been populated.
func (s *Store) Initialized(ctx context.Context) (bool, error) {
	var n int
	if err := s.exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM vault_meta WHERE id = 0`).Scan(&n); err != nil {
		return false, vaulterrors.New(vaulterrors.KindIO, "initialized", err)
	}

	return n > 0, nil
}
