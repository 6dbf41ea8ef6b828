package session_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hxhippy/pwgen/session"
	"github.com/hxhippy/pwgen/store"
	"github.com/hxhippy/pwgen/vaulterrors"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vault.db")

	s, err := store.New(path)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestManager_InitUnlockLock(t *testing.T) {
	st := newTestStore(t)
	clock := &fakeClock{now: time.Now()}
	mgr := session.NewManager(st, session.WithClock(clock), session.WithIdleTimeout(time.Minute))

	ctx := context.Background()

	exists, err := mgr.VaultExists(ctx)
	if err != nil || exists {
		t.Fatalf("VaultExists = %v, %v, want false, nil", exists, err)
	}

	if err := mgr.Init(ctx, []byte("correct horse battery staple")); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if !mgr.IsUnlocked() {
		t.Fatal("IsUnlocked = false after Init")
	}

	mgr.Lock()

	if mgr.IsUnlocked() {
		t.Fatal("IsUnlocked = true after Lock")
	}

	if err := mgr.Unlock(ctx, []byte("wrong password")); !errors.Is(err, vaulterrors.ErrAuthFailed) {
		t.Fatalf("Unlock(wrong) err = %v, want ErrAuthFailed", err)
	}

	if err := mgr.Unlock(ctx, []byte("correct horse battery staple")); err != nil {
		t.Fatalf("Unlock(correct): %v", err)
	}

	if !mgr.IsUnlocked() {
		t.Fatal("IsUnlocked = false after Unlock")
	}
}

func TestManager_WithKey_LockedFails(t *testing.T) {
	st := newTestStore(t)
	mgr := session.NewManager(st)

	err := mgr.WithKey(func(key []byte) error {
		t.Fatal("fn should not run while locked")
		return nil
	})

	if !errors.Is(err, vaulterrors.ErrLocked) {
		t.Fatalf("err = %v, want ErrLocked", err)
	}
}

func TestManager_IdleTimeout(t *testing.T) {
	st := newTestStore(t)
	clock := &fakeClock{now: time.Now()}
	mgr := session.NewManager(st, session.WithClock(clock), session.WithIdleTimeout(time.Minute))

	ctx := context.Background()
	if err := mgr.Init(ctx, []byte("hunter2hunter2")); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var ran bool
	if err := mgr.WithKey(func(key []byte) error { ran = true; return nil }); err != nil {
		t.Fatalf("WithKey: %v", err)
	}

	if !ran {
		t.Fatal("fn did not run while unlocked")
	}

	clock.now = clock.now.Add(2 * time.Minute)

	if mgr.IsUnlocked() {
		t.Fatal("IsUnlocked = true after idle timeout elapsed")
	}

	err := mgr.WithKey(func(key []byte) error {
		t.Fatal("fn should not run after idle timeout")
		return nil
	})
	if !errors.Is(err, vaulterrors.ErrLocked) {
		t.Fatalf("err = %v, want ErrLocked", err)
	}
}

func TestManager_DoubleInitFails(t *testing.T) {
	st := newTestStore(t)
	mgr := session.NewManager(st)

	ctx := context.Background()
	if err := mgr.Init(ctx, []byte("firstpassword123")); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := mgr.Init(ctx, []byte("secondpassword456")); !errors.Is(err, vaulterrors.ErrDuplicate) {
		t.Fatalf("second Init err = %v, want ErrDuplicate", err)
	}
}
