package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// EntryID computes the deterministic password-entry id: a fingerprint
// over (site, username), computed once at creation and preserved across
// updates. Site and username are
// case-folded and trimmed first so that cosmetic differences in how a
// caller spells a site or username never change the identity of the
// entry they name.
func EntryID(site, username string) string {
	norm := strings.ToLower(strings.TrimSpace(site)) + "\x00" + strings.ToLower(strings.TrimSpace(username))
	sum := sha256.Sum256([]byte(norm))

	return hex.EncodeToString(sum[:])
}
