// Package backup implements the vault's portable artifact format (C5):
// full and incremental snapshot creation, checksum verification, and
// conflict-resolving restore. It performs its own key derivation and AEAD
// sealing under a password supplied for the backup alone, independent of
// the vault's own unlock password.
package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hxhippy/pwgen/model"
	"github.com/hxhippy/pwgen/store"
	"github.com/hxhippy/pwgen/vaultcrypto"
	"github.com/hxhippy/pwgen/vaulterrors"
)

// ConflictPolicy governs how Restore reconciles an incoming record against
// a live one sharing its id.
type ConflictPolicy string

const (
	PolicyMerge     ConflictPolicy = "merge"
	PolicyOverwrite ConflictPolicy = "overwrite"
	PolicySkip      ConflictPolicy = "skip"
)

// Engine creates, verifies, and restores backup artifacts against a single
// vault store.
type Engine struct {
	store     *store.Store
	kdfParams vaultcrypto.Argon2Params
}

// NewEngine builds a backup [Engine] over st. kdfParams, if non-zero,
// fixes the Argon2id cost parameters used to derive backup keys; a zero
// value uses [vaultcrypto.NewArgon2idKDF]'s defaults.
func NewEngine(st *store.Store, kdfParams vaultcrypto.Argon2Params) *Engine {
	return &Engine{store: st, kdfParams: kdfParams}
}

// deriveKey derives a backup sealing key from password and salt using the
// engine's configured Argon2id cost parameters (or the package defaults if
// unset).
func (e *Engine) deriveKey(password, salt []byte) []byte {
	opts := []vaultcrypto.Argon2idKDFOpt{vaultcrypto.WithSalt(salt)}
	if e.kdfParams != (vaultcrypto.Argon2Params{}) {
		opts = append(opts, vaultcrypto.WithParams(e.kdfParams))
	}

	return vaultcrypto.NewArgon2idKDF(opts...).Derive(password)
}

// vaultID derives a stable identifier for the vault from its master salt,
// since the store's vault_meta table has no vault_id column of its own.
func vaultID(masterSalt []byte) string {
	sum := sha256.Sum256(masterSalt)
	return hex.EncodeToString(sum[:])[:16]
}

// Create snapshots the vault under key, encrypts it under password, and
// writes the resulting artifact to outPath. When since is non-nil, only
// entries and secrets with UpdatedAt after *since are included and the
// artifact records mode=incremental.
func (e *Engine) Create(ctx context.Context, key []byte, outPath string, password []byte, since *time.Time) (Metadata, error) {
	meta, err := e.store.Meta(ctx)
	if err != nil {
		return Metadata{}, err
	}

	entries, err := e.store.SearchEntries(ctx, key, store.EntryFilter{})
	if err != nil {
		return Metadata{}, err
	}

	secrets, err := e.store.SearchSecrets(ctx, key, store.SecretFilter{})
	if err != nil {
		return Metadata{}, err
	}

	mode := ModeFull

	if since != nil {
		mode = ModeIncremental
		entries = filterEntriesSince(entries, *since)
		secrets = filterSecretsSince(secrets, *since)
	}

	sortEntriesByID(entries)
	sortSecretsByID(secrets)

	info := BackupInfo{
		Mode:            mode,
		Since:           since,
		SourceTimestamp: time.Now().UTC(),
	}

	vid := vaultID(meta.MasterSalt)

	payload, err := newPayload(vid, entries, secrets, info)
	if err != nil {
		return Metadata{}, err
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return Metadata{}, vaulterrors.New(vaulterrors.KindInternal, "create_backup", err)
	}

	salt, err := vaultcrypto.RandBytes(vaultcrypto.SaltSize)
	if err != nil {
		return Metadata{}, vaulterrors.New(vaulterrors.KindInternal, "create_backup", err)
	}

	backupKey := e.deriveKey(password, salt)

	aead, err := vaultcrypto.NewAESGCM(backupKey)
	if err != nil {
		return Metadata{}, vaulterrors.New(vaulterrors.KindInternal, "create_backup", err)
	}

	blob, err := aead.SealBlob(plaintext)
	if err != nil {
		return Metadata{}, vaulterrors.New(vaulterrors.KindInternal, "create_backup", err)
	}

	artifact := Artifact{
		Metadata: Metadata{
			ID:            uuid.NewString(),
			CreatedAt:     time.Now().UTC(),
			VaultID:       vid,
			EntryCount:    len(entries) + len(secrets),
			FileSize:      len(blob),
			FormatVersion: model.CurrentFormatVersion,
		},
		EncryptedData: encodeBase64(blob),
		Salt:          encodeBase64(salt),
	}

	raw, err := marshalWithChecksum(artifact)
	if err != nil {
		return Metadata{}, err
	}

	if err := os.WriteFile(outPath, raw, 0o600); err != nil {
		return Metadata{}, vaulterrors.New(vaulterrors.KindIO, "create_backup", err)
	}

	var written Artifact
	if err := json.Unmarshal(raw, &written); err != nil {
		return Metadata{}, vaulterrors.New(vaulterrors.KindInternal, "create_backup", err)
	}

	return written.Metadata, nil
}

// Verify parses the artifact at path, recomputes its checksum, and rejects
// a metadata format version newer than this build reads. It never attempts
// decryption.
func (e *Engine) Verify(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, vaulterrors.New(vaulterrors.KindIO, "verify_backup", err)
	}

	if err := verifyChecksum(raw); err != nil {
		return Metadata{}, err
	}

	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return Metadata{}, vaulterrors.New(vaulterrors.KindCorruptBackup, "verify_backup", err)
	}

	if err := model.CheckFormatVersion(a.Metadata.FormatVersion); err != nil {
		return Metadata{}, err
	}

	return a.Metadata, nil
}

// EntryFailure records a single restore-time failure, keyed by the
// offending record's id. ID is empty for a secret whose variant data could
// not be decoded from the payload.
type EntryFailure struct {
	ID  string
	Err error
}

// RestoreSummary reports the outcome of a [Engine.Restore] call.
type RestoreSummary struct {
	Restored int
	Skipped  int
	Failed   []EntryFailure
}

// Restore verifies the artifact at path, decrypts it under password, and
// reconciles its contents against the live store under key according to
// policy. The whole operation runs inside a single transaction: any error
// returned here leaves the live store unchanged.
func (e *Engine) Restore(ctx context.Context, key []byte, path string, password []byte, policy ConflictPolicy) (RestoreSummary, error) {
	if _, err := e.Verify(path); err != nil {
		return RestoreSummary{}, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return RestoreSummary{}, vaulterrors.New(vaulterrors.KindIO, "restore", err)
	}

	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return RestoreSummary{}, vaulterrors.New(vaulterrors.KindCorruptBackup, "restore", err)
	}

	salt, err := decodeBase64(a.Salt)
	if err != nil {
		return RestoreSummary{}, err
	}

	blob, err := decodeBase64(a.EncryptedData)
	if err != nil {
		return RestoreSummary{}, err
	}

	backupKey := e.deriveKey(password, salt)

	aead, err := vaultcrypto.NewAESGCM(backupKey)
	if err != nil {
		return RestoreSummary{}, vaulterrors.New(vaulterrors.KindInternal, "restore", err)
	}

	plaintext, err := aead.OpenBlob(blob)
	if err != nil {
		return RestoreSummary{}, vaulterrors.New(vaulterrors.KindAuthFailed, "restore", err)
	}

	var payload Payload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return RestoreSummary{}, vaulterrors.New(vaulterrors.KindCorruptBackup, "restore", err)
	}

	if err := model.CheckFormatVersion(payload.FormatVersion); err != nil {
		return RestoreSummary{}, err
	}

	secrets, variantErrs := payload.secrets()

	var summary RestoreSummary

	err = e.store.WithTx(ctx, func(tx *store.Store) error {
		for _, entry := range payload.Entries {
			restored, skipped, err := restoreEntry(ctx, tx, key, entry, policy)
			if err != nil {
				if vaulterrors.KindOf(err) == vaulterrors.KindIO {
					return err
				}

				summary.Failed = append(summary.Failed, EntryFailure{ID: entry.ID, Err: err})
				continue
			}

			if restored {
				summary.Restored++
			}

			if skipped {
				summary.Skipped++
			}
		}

		for _, secret := range secrets {
			restored, skipped, err := restoreSecret(ctx, tx, key, secret, policy)
			if err != nil {
				if vaulterrors.KindOf(err) == vaulterrors.KindIO {
					return err
				}

				summary.Failed = append(summary.Failed, EntryFailure{ID: secret.ID, Err: err})
				continue
			}

			if restored {
				summary.Restored++
			}

			if skipped {
				summary.Skipped++
			}
		}

		return nil
	})
	if err != nil {
		return RestoreSummary{}, err
	}

	for _, verr := range variantErrs {
		summary.Failed = append(summary.Failed, EntryFailure{Err: verr})
	}

	return summary, nil
}

func restoreEntry(ctx context.Context, tx *store.Store, key []byte, incoming model.PasswordEntry, policy ConflictPolicy) (restored, skipped bool, err error) {
	live, err := tx.GetEntry(ctx, key, incoming.ID)
	if err != nil {
		if !errors.Is(err, vaulterrors.ErrNotFound) {
			return false, false, err
		}

		if err := tx.AddEntry(ctx, key, incoming); err != nil {
			return false, false, err
		}

		return true, false, nil
	}

	switch policy {
	case PolicySkip:
		return false, true, nil
	case PolicyOverwrite:
		if err := tx.UpdateEntry(ctx, key, incoming); err != nil {
			return false, false, err
		}

		return true, false, nil
	default: // PolicyMerge
		if incoming.UpdatedAt.After(live.UpdatedAt) {
			if err := tx.UpdateEntry(ctx, key, incoming); err != nil {
				return false, false, err
			}

			return true, false, nil
		}

		return false, true, nil
	}
}

func restoreSecret(ctx context.Context, tx *store.Store, key []byte, incoming model.SecretEntry, policy ConflictPolicy) (restored, skipped bool, err error) {
	live, err := tx.GetSecret(ctx, key, incoming.ID)
	if err != nil {
		if !errors.Is(err, vaulterrors.ErrNotFound) {
			return false, false, err
		}

		if err := tx.AddSecret(ctx, key, incoming); err != nil {
			return false, false, err
		}

		return true, false, nil
	}

	switch policy {
	case PolicySkip:
		return false, true, nil
	case PolicyOverwrite:
		if err := tx.UpdateSecret(ctx, key, incoming); err != nil {
			return false, false, err
		}

		return true, false, nil
	default: // PolicyMerge
		if incoming.UpdatedAt.After(live.UpdatedAt) {
			if err := tx.UpdateSecret(ctx, key, incoming); err != nil {
				return false, false, err
			}

			return true, false, nil
		}

		return false, true, nil
	}
}

func filterEntriesSince(entries []model.PasswordEntry, since time.Time) []model.PasswordEntry {
	out := entries[:0:0]

	for _, e := range entries {
		if e.UpdatedAt.After(since) {
			out = append(out, e)
		}
	}

	return out
}

func filterSecretsSince(secrets []model.SecretEntry, since time.Time) []model.SecretEntry {
	out := secrets[:0:0]

	for _, s := range secrets {
		if s.UpdatedAt.After(since) {
			out = append(out, s)
		}
	}

	return out
}

func sortEntriesByID(entries []model.PasswordEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
}

func sortSecretsByID(secrets []model.SecretEntry) {
	sort.Slice(secrets, func(i, j int) bool { return secrets[i].ID < secrets[j].ID })
}
