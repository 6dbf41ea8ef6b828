package vaulterrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hxhippy/pwgen/vaulterrors"
)

func TestError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "wrapped not-found matches sentinel",
			err:    vaulterrors.New(vaulterrors.KindNotFound, "get_entry", errors.New("id=x")),
			target: vaulterrors.ErrNotFound,
			want:   true,
		},
		{
			name:   "wrapped not-found does not match duplicate",
			err:    vaulterrors.New(vaulterrors.KindNotFound, "get_entry", nil),
			target: vaulterrors.ErrDuplicate,
			want:   false,
		},
		{
			name:   "fmt.Errorf wrap preserves Is",
			err:    fmt.Errorf("context: %w", vaulterrors.New(vaulterrors.KindDecrypt, "get_secret", nil)),
			target: vaulterrors.ErrDecrypt,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := vaulterrors.KindOf(errors.New("plain")); got != vaulterrors.KindUnknown {
		t.Errorf("KindOf(plain) = %v, want KindUnknown", got)
	}

	wrapped := fmt.Errorf("wrap: %w", vaulterrors.New(vaulterrors.KindCorruptBackup, "verify", nil))
	if got := vaulterrors.KindOf(wrapped); got != vaulterrors.KindCorruptBackup {
		t.Errorf("KindOf(wrapped) = %v, want KindCorruptBackup", got)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		kind vaulterrors.Kind
		want int
	}{
		{vaulterrors.KindAuthFailed, 2},
		{vaulterrors.KindNotFound, 3},
		{vaulterrors.KindCorruptBackup, 4},
		{vaulterrors.KindVersionTooNew, 5},
		{vaulterrors.KindInvalidConfig, 1},
		{vaulterrors.KindInternal, 1},
	}

	for _, tt := range tests {
		if got := vaulterrors.ExitCode(tt.kind); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}
