package generator

import (
	_ "embed"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
	"unicode"

	"github.com/hxhippy/pwgen/vaulterrors"
)

//go:embed words.txt
var wordlistRaw string

var wordlist = strings.Fields(wordlistRaw)

const (
	MinPassphraseWords = 3
	MaxPassphraseWords = 12
)

// Passphrase assembles words words from the built-in word list, joined by
// separator. When capitalize is set, the first letter of each word is
// upper-cased.
func Passphrase(rng io.Reader, words int, separator string, capitalize bool) (string, error) {
	if words < MinPassphraseWords || words > MaxPassphraseWords {
		return "", vaulterrors.New(vaulterrors.KindInvalidConfig, "passphrase",
			fmt.Errorf("word count %d outside [%d,%d]", words, MinPassphraseWords, MaxPassphraseWords))
	}

	if words > len(wordlist) {
		return "", vaulterrors.New(vaulterrors.KindInvalidConfig, "passphrase",
			fmt.Errorf("word count %d exceeds word list size %d", words, len(wordlist)))
	}

	available := make([]string, len(wordlist))
	copy(available, wordlist)

	picked := make([]string, words)

	for i := range picked {
		idx, err := rand.Int(rng, big.NewInt(int64(len(available))))
		if err != nil {
			return "", vaulterrors.New(vaulterrors.KindInternal, "passphrase", err)
		}

		j := idx.Int64()
		w := available[j]

		available[j] = available[len(available)-1]
		available = available[:len(available)-1]

		if capitalize {
			w = capitalizeWord(w)
		}

		picked[i] = w
	}

	return strings.Join(picked, separator), nil
}

func capitalizeWord(w string) string {
	r := []rune(w)
	if len(r) == 0 {
		return w
	}

	r[0] = unicode.ToUpper(r[0])

	return string(r)
}
