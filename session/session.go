// Package session implements the vault's unlock/lock state machine (C4):
// a single resident vault key, guarded by an RWMutex, alive only between
// unlock and lock (or idle timeout).
package session

import (
	"context"
	"sync"
	"time"

	"github.com/hxhippy/pwgen/store"
	"github.com/hxhippy/pwgen/vaultcrypto"
	"github.com/hxhippy/pwgen/vaulterrors"
)

// verifierPlaintext is the fixed, domain-separated marker sealed under the
// vault key at init and checked at unlock.
const verifierPlaintext = "pwgen-vault-verifier-v1"

// Clock abstracts time.Now for deterministic idle-timeout tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type state int

const (
	stateLocked state = iota
	stateUnlocked
)

const DefaultIdleTimeout = 5 * time.Minute

// Manager owns the vault's lifecycle and in-memory key. It is safe for
// concurrent use: WithKey takes a read lock so concurrent store reads can
// proceed while Lock/idle-timeout take the write lock to zero the key.
type Manager struct {
	store *store.Store
	clock Clock

	idleTimeout time.Duration
	params      vaultcrypto.Argon2Params

	mu           sync.RWMutex
	state        state
	key          vaultcrypto.SecretBytes
	lastActivity time.Time
}

// Option configures a [Manager] at construction time.
type Option func(*Manager)

// WithClock injects a [Clock], used by tests to control idle-timeout
// behavior deterministically.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithIdleTimeout overrides [DefaultIdleTimeout].
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.idleTimeout = d }
}

// WithKDFParams overrides the Argon2id cost parameters used for future
// [Manager.Init] calls (existing vaults keep the parameters recorded in
// their own PHC string).
func WithKDFParams(p vaultcrypto.Argon2Params) Option {
	return func(m *Manager) { m.params = p }
}

// NewManager constructs a Manager bound to st, starting in the Locked
// state.
func NewManager(st *store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:       st,
		clock:       realClock{},
		idleTimeout: DefaultIdleTimeout,
		state:       stateLocked,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// VaultExists reports whether the vault has already been initialized.
func (m *Manager) VaultExists(ctx context.Context) (bool, error) {
	return m.store.Initialized(ctx)
}

// IsUnlocked reports whether the session currently holds a resident key.
// Checking idleness may itself force a Locked transition.
func (m *Manager) IsUnlocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkIdleLocked()

	return m.state == stateUnlocked
}

// checkIdleLocked forces a Locked transition if the idle timeout has
// elapsed since the last WithKey call. Callers must hold m.mu for writing.
func (m *Manager) checkIdleLocked() {
	if m.state != stateUnlocked {
		return
	}

	if m.clock.Now().Sub(m.lastActivity) >= m.idleTimeout {
		m.lockLocked()
	}
}

// Init creates a new vault: it mints a random master salt, derives the
// vault key from password, seals the verifier, and persists the metadata.
// On success the session transitions to Unlocked. It fails with
// [vaulterrors.ErrDuplicate] if a vault already exists.
func (m *Manager) Init(ctx context.Context, password []byte) error {
	exists, err := m.store.Initialized(ctx)
	if err != nil {
		return err
	}

	if exists {
		return vaulterrors.New(vaulterrors.KindDuplicate, "init", nil)
	}

	salt, err := vaultcrypto.RandBytes(vaultcrypto.SaltSize)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindInternal, "init", err)
	}

	kdf := vaultcrypto.NewArgon2idKDF(vaultcrypto.WithSalt(salt), vaultcrypto.WithParams(m.kdfParams()))
	key := kdf.Derive(password)

	aead, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindInternal, "init", err)
	}

	blob, err := aead.SealBlob([]byte(verifierPlaintext))
	if err != nil {
		return vaulterrors.New(vaulterrors.KindInternal, "init", err)
	}

	phc := kdf.PHC()
	phc.Salt = salt

	meta := store.VaultMeta{
		MasterSalt:         salt,
		VerifierNonce:      blob[:vaultcrypto.NonceSizeGCM],
		VerifierCiphertext: blob[vaultcrypto.NonceSizeGCM:],
		KDFPHC:             phc.String(),
	}

	if err := m.store.SaveMeta(ctx, meta); err != nil {
		return err
	}

	m.setUnlocked(key)

	return nil
}

func (m *Manager) kdfParams() vaultcrypto.Argon2Params {
	if m.params == (vaultcrypto.Argon2Params{}) {
		return vaultcrypto.NewArgon2idKDF().PHC().Argon2Params
	}

	return m.params
}

// Unlock derives the vault key from password using the vault's recorded
// KDF parameters and checks it against the stored verifier. On success the
// session transitions to Unlocked. A wrong password, a tampered verifier,
// and a vault that was never initialized all return
// [vaulterrors.ErrAuthFailed] without distinguishing one from another; any
// other error reading the vault metadata is returned as is.
func (m *Manager) Unlock(ctx context.Context, password []byte) error {
	meta, err := m.store.Meta(ctx)
	if err != nil {
		if vaulterrors.KindOf(err) == vaulterrors.KindNotFound {
			return vaulterrors.New(vaulterrors.KindAuthFailed, "unlock", err)
		}

		return err
	}

	phc, err := vaultcrypto.DecodeAragon2idPHC(meta.KDFPHC)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindAuthFailed, "unlock", err)
	}

	kdf := vaultcrypto.NewArgon2idKDF(vaultcrypto.WithSalt(meta.MasterSalt), vaultcrypto.WithPHC(phc))
	key := kdf.Derive(password)

	aead, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindAuthFailed, "unlock", err)
	}

	blob := append(append([]byte{}, meta.VerifierNonce...), meta.VerifierCiphertext...)

	plaintext, err := aead.OpenBlob(blob)
	if err != nil || string(plaintext) != verifierPlaintext {
		vaultcrypto.Zero(key)
		return vaulterrors.New(vaulterrors.KindAuthFailed, "unlock", vaulterrors.ErrAuthFailed)
	}

	m.setUnlocked(key)

	return nil
}

func (m *Manager) setUnlocked(key []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = stateUnlocked
	m.key = vaultcrypto.NewSecretBytes(key)
	m.lastActivity = m.clock.Now()
}

// Lock discards the resident key, zeroing its backing buffer, and
// transitions the session back to Locked.
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lockLocked()
}

func (m *Manager) lockLocked() {
	m.key.Release()
	m.state = stateLocked
}

// ErrLocked is returned by WithKey when the session is not Unlocked.
var ErrLocked = vaulterrors.ErrLocked

// WithKey lends the resident key to fn. The read lock is held for fn's
// entire duration, so concurrent calls to WithKey (and concurrent store
// reads) proceed together while a Lock or idle timeout, which takes the
// write lock to zero the key, holds off until every in-flight fn returns.
// Every call resets the idle clock. It fails with [vaulterrors.ErrLocked]
// if the session is Locked or has gone idle.
func (m *Manager) WithKey(fn func(key []byte) error) error {
	if m.IsUnlocked() {
		m.mu.Lock()
		m.lastActivity = m.clock.Now()
		m.mu.Unlock()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != stateUnlocked {
		return vaulterrors.New(vaulterrors.KindLocked, "with_key", nil)
	}

	return fn(m.key.Bytes())
}
