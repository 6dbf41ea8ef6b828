// Package vault is the core API facade consumed by the CLI and, were one
// built, a GUI collaborator: it wires session+store+backup+generator
// behind a single surface, so that callers never reach into those
// packages directly.
package vault

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/google/uuid"

	"github.com/hxhippy/pwgen/backup"
	"github.com/hxhippy/pwgen/generator"
	"github.com/hxhippy/pwgen/model"
	"github.com/hxhippy/pwgen/session"
	"github.com/hxhippy/pwgen/store"
	"github.com/hxhippy/pwgen/vaultcrypto"
)

// Vault is the facade over a single on-disk store: unlock/lock state,
// CRUD for entries and secrets, password/passphrase generation, and
// backup/restore.
type Vault struct {
	store   *store.Store
	session *session.Manager
	backup  *backup.Engine
}

type options struct {
	idleTimeout     time.Duration
	clock           session.Clock
	kdfParams       vaultcrypto.Argon2Params
	backupKDFParams vaultcrypto.Argon2Params
}

// Option configures Open.
type Option func(*options)

// WithIdleTimeout overrides the default session idle timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) { o.idleTimeout = d }
}

// WithClock injects the [session.Clock] used for idle-timeout bookkeeping,
// for deterministic tests.
func WithClock(c session.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithKDFParams overrides the Argon2id cost parameters used to derive the
// vault's master key at init time.
func WithKDFParams(p vaultcrypto.Argon2Params) Option {
	return func(o *options) { o.kdfParams = p }
}

// WithBackupKDFParams overrides the Argon2id cost parameters used to
// derive backup sealing keys.
func WithBackupKDFParams(p vaultcrypto.Argon2Params) Option {
	return func(o *options) { o.backupKDFParams = p }
}

// Open opens (creating if absent) the SQLite database at path and returns
// a locked [Vault] ready for Init or Unlock.
func Open(path string, opts ...Option) (*Vault, error) {
	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}

	st, err := store.New(path)
	if err != nil {
		return nil, err
	}

	var sessOpts []session.Option
	if cfg.clock != nil {
		sessOpts = append(sessOpts, session.WithClock(cfg.clock))
	}

	if cfg.idleTimeout != 0 {
		sessOpts = append(sessOpts, session.WithIdleTimeout(cfg.idleTimeout))
	}

	if cfg.kdfParams != (vaultcrypto.Argon2Params{}) {
		sessOpts = append(sessOpts, session.WithKDFParams(cfg.kdfParams))
	}

	return &Vault{
		store:   st,
		session: session.NewManager(st, sessOpts...),
		backup:  backup.NewEngine(st, cfg.backupKDFParams),
	}, nil
}

// Close releases the underlying database handle.
func (v *Vault) Close() error { return v.store.Close() }

// VaultExists reports whether the database has already been initialized.
func (v *Vault) VaultExists(ctx context.Context) (bool, error) { return v.session.VaultExists(ctx) }

// InitVault initializes a new vault under password and unlocks it.
func (v *Vault) InitVault(ctx context.Context, password []byte) error {
	return v.session.Init(ctx, password)
}

// UnlockVault derives the vault key from password and authenticates it
// against the stored verifier.
func (v *Vault) UnlockVault(ctx context.Context, password []byte) error {
	return v.session.Unlock(ctx, password)
}

// LockVault discards the resident vault key.
func (v *Vault) LockVault() { v.session.Lock() }

// IsVaultUnlocked reports whether the vault key is currently resident.
func (v *Vault) IsVaultUnlocked() bool { return v.session.IsUnlocked() }

// AddEntry assigns the entry its deterministic (site, username)
// fingerprint id and inserts it.
func (v *Vault) AddEntry(ctx context.Context, e model.PasswordEntry) (model.PasswordEntry, error) {
	now := time.Now().UTC()
	e.ID = model.EntryID(e.Site, e.Username)
	e.CreatedAt = now
	e.UpdatedAt = now

	err := v.session.WithKey(func(key []byte) error {
		return v.store.AddEntry(ctx, key, e)
	})

	return e, err
}

// GetEntry fetches and decrypts the entry with the given id.
func (v *Vault) GetEntry(ctx context.Context, id string) (model.PasswordEntry, error) {
	var e model.PasswordEntry

	err := v.session.WithKey(func(key []byte) error {
		got, err := v.store.GetEntry(ctx, key, id)
		e = got

		return err
	})

	return e, err
}

// UpdateEntry re-encrypts and overwrites the entry, preserving its id and
// bumping updated_at.
func (v *Vault) UpdateEntry(ctx context.Context, e model.PasswordEntry) error {
	e.UpdatedAt = time.Now().UTC()

	return v.session.WithKey(func(key []byte) error {
		return v.store.UpdateEntry(ctx, key, e)
	})
}

// DeleteEntry removes the entry with the given id.
func (v *Vault) DeleteEntry(ctx context.Context, id string) error {
	return v.session.WithKey(func(key []byte) error {
		return v.store.DeleteEntry(ctx, id)
	})
}

// SearchEntries returns every entry matching filter, newest-updated first.
func (v *Vault) SearchEntries(ctx context.Context, filter store.EntryFilter) ([]model.PasswordEntry, error) {
	var out []model.PasswordEntry

	err := v.session.WithKey(func(key []byte) error {
		es, err := v.store.SearchEntries(ctx, key, filter)
		out = es

		return err
	})

	return out, err
}

// AddSecret assigns the secret a random id and inserts it.
func (v *Vault) AddSecret(ctx context.Context, e model.SecretEntry) (model.SecretEntry, error) {
	now := time.Now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.UpdatedAt = now

	err := v.session.WithKey(func(key []byte) error {
		return v.store.AddSecret(ctx, key, e)
	})

	return e, err
}

// GetSecret fetches and decrypts the secret with the given id, recording
// an access audit entry.
func (v *Vault) GetSecret(ctx context.Context, id string) (model.SecretEntry, error) {
	var e model.SecretEntry

	err := v.session.WithKey(func(key []byte) error {
		got, err := v.store.GetSecret(ctx, key, id)
		e = got

		return err
	})

	return e, err
}

// UpdateSecret re-encrypts and overwrites the secret, preserving its id
// and bumping updated_at.
func (v *Vault) UpdateSecret(ctx context.Context, e model.SecretEntry) error {
	e.UpdatedAt = time.Now().UTC()

	return v.session.WithKey(func(key []byte) error {
		return v.store.UpdateSecret(ctx, key, e)
	})
}

// DeleteSecret removes the secret with the given id.
func (v *Vault) DeleteSecret(ctx context.Context, id string) error {
	return v.session.WithKey(func(key []byte) error {
		return v.store.DeleteSecret(ctx, id)
	})
}

// SearchSecrets returns every secret matching filter, newest-updated first.
func (v *Vault) SearchSecrets(ctx context.Context, filter store.SecretFilter) ([]model.SecretEntry, error) {
	var out []model.SecretEntry

	err := v.session.WithKey(func(key []byte) error {
		ss, err := v.store.SearchSecrets(ctx, key, filter)
		out = ss

		return err
	})

	return out, err
}

// ExpiringSecrets returns secrets whose expires_at falls within window of
// now.
func (v *Vault) ExpiringSecrets(ctx context.Context, window time.Duration) ([]model.SecretEntry, error) {
	var out []model.SecretEntry

	err := v.session.WithKey(func(key []byte) error {
		ss, err := v.store.ExpiringSecrets(ctx, key, time.Now().UTC(), window)
		out = ss

		return err
	})

	return out, err
}

// SecretsStats summarizes the secret collection without requiring the
// vault key, since every field it reports is derived from clear-text
// columns.
func (v *Vault) SecretsStats(ctx context.Context) (store.SecretsStats, error) {
	return v.store.SecretsStats(ctx, time.Now().UTC())
}

// AuditTrail returns secretID's access/change history, oldest first.
func (v *Vault) AuditTrail(ctx context.Context, secretID string) ([]store.AuditEntry, error) {
	return v.store.AuditTrail(ctx, secretID)
}

// GetSecretTypes lists every known secret variant discriminator, in
// presentation order.
func (v *Vault) GetSecretTypes() []model.SecretType { return model.SecretTypes() }

// GeneratePassword synthesizes a random password per cfg. It requires no
// unlocked vault: generation draws only from the process CSPRNG.
func (v *Vault) GeneratePassword(cfg generator.Config) (string, error) {
	return generator.Generate(rand.Reader, cfg)
}

// GeneratePassphrase synthesizes a random passphrase of the given word
// count and separator.
func (v *Vault) GeneratePassphrase(words int, separator string, capitalize bool) (string, error) {
	return generator.Passphrase(rand.Reader, words, separator, capitalize)
}

// BackupMode selects between a full snapshot and one scoped to records
// touched since a prior point in time.
type BackupMode struct {
	Incremental bool
	Since       *time.Time
}

// Backup snapshots the unlocked vault under password and writes the
// resulting artifact to outputPath.
func (v *Vault) Backup(ctx context.Context, outputPath string, password []byte, mode BackupMode) (backup.Metadata, error) {
	var since *time.Time
	if mode.Incremental {
		since = mode.Since
	}

	var meta backup.Metadata

	err := v.session.WithKey(func(key []byte) error {
		m, err := v.backup.Create(ctx, key, outputPath, password, since)
		meta = m

		return err
	})

	return meta, err
}

// VerifyBackup checks a backup artifact's structural integrity without
// decrypting it. It requires no unlocked vault.
func (v *Vault) VerifyBackup(path string) (backup.Metadata, error) {
	return v.backup.Verify(path)
}

// Restore reconciles the artifact at path into the unlocked vault
// according to policy.
func (v *Vault) Restore(ctx context.Context, path string, password []byte, policy backup.ConflictPolicy) (backup.RestoreSummary, error) {
	var summary backup.RestoreSummary

	err := v.session.WithKey(func(key []byte) error {
		s, err := v.backup.Restore(ctx, key, path, password, policy)
		summary = s

		return err
	})

	return summary, err
}
