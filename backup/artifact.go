package backup

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/hxhippy/pwgen/vaulterrors"
)

// checksumPlaceholder stands in for Metadata.Checksum while the checksum
// itself is computed, so the hash is taken over a value that does not
// depend on itself. A SHA-256 hex digest is exactly 64 characters, the same
// length as the placeholder, so substituting the real value afterward never
// changes the byte length of the artifact text.
var checksumPlaceholder = strings.Repeat("0", 64)

// Metadata is the cleartext header of a backup [Artifact].
type Metadata struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	VaultID       string    `json:"vault_id"`
	EntryCount    int       `json:"entry_count"`
	FileSize      int       `json:"file_size"`
	Checksum      string    `json:"checksum"`
	FormatVersion int       `json:"format_version"`
}

// Artifact is the on-disk (and wire) shape of a backup: a cleartext
// metadata header alongside the AEAD-sealed, base64-encoded payload and the
// salt used to derive the sealing key from the backup password.
type Artifact struct {
	Metadata      Metadata `json:"metadata"`
	EncryptedData string   `json:"encrypted_data"`
	Salt          string   `json:"salt"`
}

// marshalWithChecksum renders a, first with Metadata.Checksum held at the
// fixed placeholder, computes the SHA-256 checksum over that rendering,
// then substitutes the real digest in place — a byte-level swap, not a
// second marshal, so the two renderings are identical but for the checksum
// field's content.
func marshalWithChecksum(a Artifact) ([]byte, error) {
	a.Metadata.Checksum = checksumPlaceholder

	raw, err := json.Marshal(a)
	if err != nil {
		return nil, vaulterrors.New(vaulterrors.KindInternal, "marshal_artifact", err)
	}

	sum := sha256.Sum256(raw)
	digest := hex.EncodeToString(sum[:])

	return bytes.Replace(raw, []byte(checksumPlaceholder), []byte(digest), 1), nil
}

// verifyChecksum recomputes the checksum of raw (the artifact exactly as
// read from disk) and reports whether it matches the Checksum field
// embedded in it. It does not attempt decryption.
func verifyChecksum(raw []byte) error {
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return vaulterrors.New(vaulterrors.KindCorruptBackup, "verify_backup", err)
	}

	checksum := a.Metadata.Checksum
	if len(checksum) != len(checksumPlaceholder) {
		return vaulterrors.New(vaulterrors.KindCorruptBackup, "verify_backup", nil)
	}

	reverted := bytes.Replace(raw, []byte(checksum), []byte(checksumPlaceholder), 1)

	sum := sha256.Sum256(reverted)
	digest := hex.EncodeToString(sum[:])

	if !strings.EqualFold(digest, checksum) {
		return vaulterrors.New(vaulterrors.KindCorruptBackup, "verify_backup", nil)
	}

	return nil
}

func encodeBase64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func decodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, vaulterrors.New(vaulterrors.KindCorruptBackup, "decode_artifact", err)
	}

	return b, nil
}
