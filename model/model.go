// Package model defines the canonical shapes of password entries and typed
// secrets, shared by the vault store and the backup engine.
package model

import "time"

// PasswordEntry represents a credential for a site.
//
// ID is a deterministic fingerprint of (Site, Username) computed once at
// creation and preserved across updates.
type PasswordEntry struct {
	ID       string   `json:"id"`
	Site     string   `json:"site"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Notes    string   `json:"notes,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Favorite bool     `json:"favorite"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
}

// SecretType is the stable discriminator string for a [SecretData] variant.
type SecretType string

const (
	SecretTypePassword           SecretType = "password"
	SecretTypeSSHKey             SecretType = "ssh_key"
	SecretTypeAPIKey             SecretType = "api_key"
	SecretTypeSecureNote         SecretType = "secure_note"
	SecretTypeDocument           SecretType = "document"
	SecretTypeConfiguration      SecretType = "configuration"
	SecretTypeCertificate        SecretType = "certificate"
	SecretTypeDatabaseConnection SecretType = "database_connection"
	SecretTypeCloudCredentials   SecretType = "cloud_credentials"
	SecretTypeCustom             SecretType = "custom"
)

// SecretTypes lists every known discriminator, in the order they should be
// presented by get_secret_types.
func SecretTypes() []SecretType {
	return []SecretType{
		SecretTypePassword,
		SecretTypeSSHKey,
		SecretTypeAPIKey,
		SecretTypeSecureNote,
		SecretTypeDocument,
		SecretTypeConfiguration,
		SecretTypeCertificate,
		SecretTypeDatabaseConnection,
		SecretTypeCloudCredentials,
		SecretTypeCustom,
	}
}

// SecretEntry is a typed credential beyond a bare site/username/password.
type SecretEntry struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Environment string     `json:"environment,omitempty"`
	Project     string     `json:"project,omitempty"`
	Favorite    bool       `json:"favorite"`
	Type        SecretType `json:"type"`
	Data        SecretData `json:"data"`

	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastAccessed  *time.Time `json:"last_accessed,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// SecretData is implemented by exactly the ten variant types declared in
// this package, closing the tagged union: dispatch on a [SecretEntry] is by
// a type switch on SecretData, never by open-ended dynamic subtyping.
type SecretData interface {
	secretDataMarker()
	Type() SecretType
}

type PasswordData struct {
	Username string `json:"username"`
	Password string `json:"password"`
	URL      string `json:"url,omitempty"`
}

func (PasswordData) secretDataMarker()    {}
func (PasswordData) Type() SecretType     { return SecretTypePassword }

type SSHKeyData struct {
	PrivateKey  string `json:"private_key"`
	PublicKey   string `json:"public_key,omitempty"`
	KeyType     string `json:"key_type"`
	Passphrase  string `json:"passphrase,omitempty"`
	Comment     string `json:"comment,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

func (SSHKeyData) secretDataMarker() {}
func (SSHKeyData) Type() SecretType  { return SecretTypeSSHKey }

type APIKeyData struct {
	Key       string   `json:"key"`
	Secret    string   `json:"secret,omitempty"`
	Endpoint  string   `json:"endpoint,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
	RateLimit *int     `json:"rate_limit,omitempty"`
}

func (APIKeyData) secretDataMarker() {}
func (APIKeyData) Type() SecretType  { return SecretTypeAPIKey }

// NoteFormat is the markup format of a [SecureNoteData] body.
type NoteFormat string

const (
	NoteFormatPlain    NoteFormat = "plain"
	NoteFormatMarkdown NoteFormat = "markdown"
	NoteFormatHTML     NoteFormat = "html"
	NoteFormatRich     NoteFormat = "rich"
)

type SecureNoteData struct {
	Content string     `json:"content"`
	Format  NoteFormat `json:"format"`
}

func (SecureNoteData) secretDataMarker() {}
func (SecureNoteData) Type() SecretType  { return SecretTypeSecureNote }

type DocumentData struct {
	Bytes       []byte `json:"bytes"`
	ContentType string `json:"content_type"`
	Checksum    string `json:"checksum"`
	Compressed  bool   `json:"compressed,omitempty"`
}

func (DocumentData) secretDataMarker() {}
func (DocumentData) Type() SecretType  { return SecretTypeDocument }

// ConfigFormat is the syntax of a [ConfigurationData] body.
type ConfigFormat string

const (
	ConfigFormatJSON ConfigFormat = "json"
	ConfigFormatYAML ConfigFormat = "yaml"
	ConfigFormatTOML ConfigFormat = "toml"
	ConfigFormatXML  ConfigFormat = "xml"
	ConfigFormatEnv  ConfigFormat = "env"
)

type ConfigurationData struct {
	Format  ConfigFormat `json:"format"`
	Content string       `json:"content"`
}

func (ConfigurationData) secretDataMarker() {}
func (ConfigurationData) Type() SecretType  { return SecretTypeConfiguration }

type CertificateData struct {
	Certificate string     `json:"certificate"`
	PrivateKey  string     `json:"private_key,omitempty"`
	Chain       string     `json:"chain,omitempty"`
	Format      string     `json:"format"`
	Expiry      *time.Time `json:"expiry,omitempty"`
}

func (CertificateData) secretDataMarker() {}
func (CertificateData) Type() SecretType  { return SecretTypeCertificate }

type DatabaseConnectionData struct {
	Engine           string `json:"engine"`
	ConnectionString string `json:"connection_string"`
	SSL              bool   `json:"ssl,omitempty"`
}

func (DatabaseConnectionData) secretDataMarker() {}
func (DatabaseConnectionData) Type() SecretType  { return SecretTypeDatabaseConnection }

type CloudCredentialsData struct {
	Provider  string            `json:"provider"`
	AccessKey string            `json:"access_key"`
	SecretKey string            `json:"secret_key,omitempty"`
	Region    string            `json:"region,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

func (CloudCredentialsData) secretDataMarker() {}
func (CloudCredentialsData) Type() SecretType  { return SecretTypeCloudCredentials }

type CustomData struct {
	SchemaName string            `json:"schema_name"`
	Fields     map[string]string `json:"fields"`
}

func (CustomData) secretDataMarker() {}
func (CustomData) Type() SecretType  { return SecretTypeCustom }
