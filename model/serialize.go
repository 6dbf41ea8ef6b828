package model

import (
	"encoding/json"
	"fmt"

	"github.com/hxhippy/pwgen/vaulterrors"
)

// CurrentFormatVersion is the only format_version this implementation
// emits. Readers accept any version <= CurrentFormatVersion and must
// reject anything higher with [vaulterrors.ErrVersionTooNew].
const CurrentFormatVersion = 1

// CheckFormatVersion enforces the forward-compatible-read rule: versions at
// or below CurrentFormatVersion are accepted, anything higher is rejected.
func CheckFormatVersion(v int) error {
	if v > CurrentFormatVersion {
		return vaulterrors.New(vaulterrors.KindVersionTooNew, "check_format_version",
			fmt.Errorf("artifact format_version %d exceeds supported version %d", v, CurrentFormatVersion))
	}

	return nil
}

// MarshalSecretData encodes a secret variant to its canonical JSON form,
// used both for the per-record encrypted_data payload and for backup
// artifacts.
func MarshalSecretData(d SecretData) ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, vaulterrors.New(vaulterrors.KindInternal, "marshal_secret_data", err)
	}

	return b, nil
}

// UnmarshalSecretData decodes raw into the variant named by discriminator.
// An unrecognized discriminator yields [vaulterrors.ErrUnknownVariant].
func UnmarshalSecretData(discriminator SecretType, raw []byte) (SecretData, error) {
	var (
		data SecretData
		err  error
	)

	switch discriminator {
	case SecretTypePassword:
		var v PasswordData
		err = json.Unmarshal(raw, &v)
		data = v
	case SecretTypeSSHKey:
		var v SSHKeyData
		err = json.Unmarshal(raw, &v)
		data = v
	case SecretTypeAPIKey:
		var v APIKeyData
		err = json.Unmarshal(raw, &v)
		data = v
	case SecretTypeSecureNote:
		var v SecureNoteData
		err = json.Unmarshal(raw, &v)
		data = v
	case SecretTypeDocument:
		var v DocumentData
		err = json.Unmarshal(raw, &v)
		data = v
	case SecretTypeConfiguration:
		var v ConfigurationData
		err = json.Unmarshal(raw, &v)
		data = v
	case SecretTypeCertificate:
		var v CertificateData
		err = json.Unmarshal(raw, &v)
		data = v
	case SecretTypeDatabaseConnection:
		var v DatabaseConnectionData
		err = json.Unmarshal(raw, &v)
		data = v
	case SecretTypeCloudCredentials:
		var v CloudCredentialsData
		err = json.Unmarshal(raw, &v)
		data = v
	case SecretTypeCustom:
		var v CustomData
		err = json.Unmarshal(raw, &v)
		data = v
	default:
		return nil, vaulterrors.New(vaulterrors.KindUnknownVariant, "unmarshal_secret_data",
			fmt.Errorf("discriminator %q not recognized", discriminator))
	}

	if err != nil {
		return nil, vaulterrors.New(vaulterrors.KindInternal, "unmarshal_secret_data", err)
	}

	return data, nil
}
