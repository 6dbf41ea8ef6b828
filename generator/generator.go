// Package generator synthesizes random passwords and passphrases. It is a
// pure function of its inputs and an injected random source — no I/O, no
// package-level state.
package generator

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/hxhippy/pwgen/vaulterrors"
)

const (
	lower   = "abcdefghijklmnopqrstuvwxyz"
	upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
	symbols = "!@#$%^&*()-_=+[]{}<>?"

	// ambiguous glyphs removed when ExcludeAmbiguous is set: visually
	// confusable letters/digits plus the easily-misread '|' symbol.
	ambiguous = "0O1lI|"

	MinLength = 8
	MaxLength = 128
)

// ClassConfig configures a single character class.
type ClassConfig struct {
	Enabled bool
	Min     int // minimum guaranteed occurrences; 0 means "default to 1 if Enabled"
}

// Config describes a password generation policy.
type Config struct {
	Length           int
	Uppercase        ClassConfig
	Lowercase        ClassConfig
	Digits           ClassConfig
	Symbols          ClassConfig
	ExcludeAmbiguous bool
}

type class struct {
	alphabet string
	min      int
}

// Generate produces a random password satisfying cfg, drawing randomness
// from rng (pass rand.Reader in production; tests may inject a
// deterministic source).
func Generate(rng io.Reader, cfg Config) (string, error) {
	if cfg.Length < MinLength || cfg.Length > MaxLength {
		return "", vaulterrors.New(vaulterrors.KindInvalidConfig, "generate",
			fmt.Errorf("length %d outside [%d,%d]", cfg.Length, MinLength, MaxLength))
	}

	classes := buildClasses(cfg)
	if len(classes) == 0 {
		return "", vaulterrors.New(vaulterrors.KindInvalidConfig, "generate",
			fmt.Errorf("at least one character class must be enabled"))
	}

	minSum := 0
	for _, c := range classes {
		minSum += c.min
	}

	if minSum > cfg.Length {
		return "", vaulterrors.New(vaulterrors.KindInvalidConfig, "generate",
			fmt.Errorf("sum of class minimums %d exceeds length %d", minSum, cfg.Length))
	}

	union := unionAlphabet(classes)

	out := make([]byte, 0, cfg.Length)

	for _, c := range classes {
		s, err := randomString(rng, c.min, c.alphabet)
		if err != nil {
			return "", err
		}

		out = append(out, s...)
	}

	remaining := cfg.Length - len(out)

	s, err := randomString(rng, remaining, union)
	if err != nil {
		return "", err
	}

	out = append(out, s...)

	if err := shuffle(rng, out); err != nil {
		return "", vaulterrors.New(vaulterrors.KindInternal, "generate", err)
	}

	return string(out), nil
}

func buildClasses(cfg Config) []class {
	specs := []struct {
		cfg      ClassConfig
		alphabet string
	}{
		{cfg.Uppercase, upper},
		{cfg.Lowercase, lower},
		{cfg.Digits, digits},
		{cfg.Symbols, symbols},
	}

	classes := make([]class, 0, len(specs))

	for _, s := range specs {
		if !s.cfg.Enabled {
			continue
		}

		alphabet := s.alphabet
		if cfg.ExcludeAmbiguous {
			alphabet = stripAmbiguous(alphabet)
		}

		if len(alphabet) == 0 {
			continue
		}

		min := s.cfg.Min
		if min <= 0 {
			min = 1
		}

		classes = append(classes, class{alphabet: alphabet, min: min})
	}

	return classes
}

func stripAmbiguous(alphabet string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(ambiguous, r) {
			return -1
		}

		return r
	}, alphabet)
}

func unionAlphabet(classes []class) string {
	var b strings.Builder
	for _, c := range classes {
		b.WriteString(c.alphabet)
	}

	return b.String()
}

func randomString(rng io.Reader, n int, alphabet string) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}

	out := make([]byte, n)

	for i := range out {
		idx, err := rand.Int(rng, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return nil, vaulterrors.New(vaulterrors.KindInternal, "random_string", err)
		}

		out[i] = alphabet[idx.Int64()]
	}

	return out, nil
}

// shuffle applies a uniform-random Fisher-Yates permutation in place so
// that guaranteed-class characters aren't always at fixed positions.
func shuffle(rng io.Reader, b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := rand.Int(rng, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}

		b[i], b[j.Int64()] = b[j.Int64()], b[i]
	}

	return nil
}
