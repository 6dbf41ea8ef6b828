package backup

import (
	"encoding/json"
	"time"

	"github.com/hxhippy/pwgen/model"
)

// Mode distinguishes a full snapshot from an incremental one scoped to
// entries touched since a prior point in time.
type Mode string

const (
	ModeFull        Mode = "full"
	ModeIncremental Mode = "incremental"
)

// BackupInfo records how a payload was produced.
type BackupInfo struct {
	Mode            Mode       `json:"mode"`
	Since           *time.Time `json:"since,omitempty"`
	SourceTimestamp time.Time  `json:"source_timestamp"`
}

// secretWire is the backup-local wire form of a [model.SecretEntry]: Data
// is carried as raw JSON rather than the SecretData interface, since an
// interface field cannot round-trip through encoding/json without a
// discriminator-driven wrapper.
type secretWire struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	Environment  string          `json:"environment,omitempty"`
	Project      string          `json:"project,omitempty"`
	Favorite     bool            `json:"favorite"`
	Type         model.SecretType `json:"type"`
	Data         json.RawMessage `json:"data"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	LastAccessed *time.Time      `json:"last_accessed,omitempty"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
}

func toWire(e model.SecretEntry) (secretWire, error) {
	raw, err := model.MarshalSecretData(e.Data)
	if err != nil {
		return secretWire{}, err
	}

	return secretWire{
		ID:           e.ID,
		Name:         e.Name,
		Description:  e.Description,
		Tags:         e.Tags,
		Environment:  e.Environment,
		Project:      e.Project,
		Favorite:     e.Favorite,
		Type:         e.Type,
		Data:         raw,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
		LastAccessed: e.LastAccessed,
		ExpiresAt:    e.ExpiresAt,
	}, nil
}

func fromWire(w secretWire) (model.SecretEntry, error) {
	data, err := model.UnmarshalSecretData(w.Type, w.Data)
	if err != nil {
		return model.SecretEntry{}, err
	}

	return model.SecretEntry{
		ID:           w.ID,
		Name:         w.Name,
		Description:  w.Description,
		Tags:         w.Tags,
		Environment:  w.Environment,
		Project:      w.Project,
		Favorite:     w.Favorite,
		Type:         w.Type,
		Data:         data,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
		LastAccessed: w.LastAccessed,
		ExpiresAt:    w.ExpiresAt,
	}, nil
}

// Payload is the canonical, decrypted snapshot sealed inside an [Artifact].
// Entries and Secrets are both ordered by id ascending so that their
// serialization does not depend on the order the store returned them in.
// BackupInfo.SourceTimestamp records the time of each backup, so two backups
// of identical content still differ in that field.
type Payload struct {
	VaultID       string       `json:"vault_id"`
	Entries       []model.PasswordEntry `json:"entries"`
	Secrets       []secretWire `json:"secrets"`
	BackupInfo    BackupInfo   `json:"backup_info"`
	FormatVersion int          `json:"format_version"`
}

func newPayload(vaultID string, entries []model.PasswordEntry, secrets []model.SecretEntry, info BackupInfo) (Payload, error) {
	wire := make([]secretWire, len(secrets))

	for i, s := range secrets {
		w, err := toWire(s)
		if err != nil {
			return Payload{}, err
		}

		wire[i] = w
	}

	return Payload{
		VaultID:       vaultID,
		Entries:       entries,
		Secrets:       wire,
		BackupInfo:    info,
		FormatVersion: model.CurrentFormatVersion,
	}, nil
}

// secrets decodes the payload's wire-form secrets back into
// [model.SecretEntry] values. An unrecognized variant yields
// [vaulterrors.ErrUnknownVariant] for that entry alone; the caller decides
// whether to abort or route it to a per-entry failure list.
func (p Payload) secrets() ([]model.SecretEntry, []error) {
	out := make([]model.SecretEntry, 0, len(p.Secrets))

	var errs []error

	for _, w := range p.Secrets {
		e, err := fromWire(w)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		out = append(out, e)
	}

	return out, errs
}
