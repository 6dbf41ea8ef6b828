package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/hxhippy/pwgen/model"
	"github.com/hxhippy/pwgen/vaultcrypto"
	"github.com/hxhippy/pwgen/vaulterrors"
)

const insertSecret = `
	INSERT INTO secrets
		(id, name, description, tags, secret_type, environment, project, favorite, encrypted_data, created_at, updated_at, last_accessed, expires_at)
	VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// AddSecret encrypts e.Data under key and inserts the row, then records an
// audit_log "create" entry.
func (s *Store) AddSecret(ctx context.Context, key []byte, e model.SecretEntry) error {
	aead, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindInternal, "add_secret", err)
	}

	raw, err := model.MarshalSecretData(e.Data)
	if err != nil {
		return err
	}

	blob, err := aead.SealBlob(raw)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindInternal, "add_secret", err)
	}

	_, err = s.exec.ExecContext(ctx, insertSecret,
		e.ID, e.Name, e.Description, joinTags(e.Tags), string(e.Type), nullIfEmpty(e.Environment), nullIfEmpty(e.Project),
		boolToInt(e.Favorite), blob, formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
		formatTimePtr(e.LastAccessed), formatTimePtr(e.ExpiresAt))
	if err != nil {
		if isUniqueViolation(err) {
			return vaulterrors.New(vaulterrors.KindDuplicate, "add_secret", err)
		}

		return vaulterrors.New(vaulterrors.KindIO, "add_secret", err)
	}

	return s.recordAudit(ctx, e.ID, "create", "")
}

type secretRow struct {
	id            string
	name          string
	description   string
	tags          string
	secretType    string
	environment   sql.NullString
	project       sql.NullString
	favorite      int
	encryptedData []byte
	createdAt     string
	updatedAt     string
	lastAccessed  sql.NullString
	expiresAt     sql.NullString
}

func (r secretRow) decrypt(aead *vaultcrypto.AESGCM) (model.SecretEntry, error) {
	plaintext, err := aead.OpenBlob(r.encryptedData)
	if err != nil {
		return model.SecretEntry{}, vaulterrors.New(vaulterrors.KindDecrypt, "decrypt_secret", err)
	}

	data, err := model.UnmarshalSecretData(model.SecretType(r.secretType), plaintext)
	if err != nil {
		return model.SecretEntry{}, err
	}

	e := model.SecretEntry{
		ID:          r.id,
		Name:        r.name,
		Description: r.description,
		Tags:        splitTags(r.tags),
		Environment: r.environment.String,
		Project:     r.project.String,
		Favorite:    r.favorite != 0,
		Type:        model.SecretType(r.secretType),
		Data:        data,
	}

	e.CreatedAt = parseTime(r.createdAt)
	e.UpdatedAt = parseTime(r.updatedAt)
	e.LastAccessed = parseTimePtr(r.lastAccessed)
	e.ExpiresAt = parseTimePtr(r.expiresAt)

	return e, nil
}

const selectSecretByID = `
	SELECT id, name, description, tags, secret_type, environment, project, favorite, encrypted_data, created_at, updated_at, last_accessed, expires_at
	FROM secrets
	WHERE id = ?
`

// GetSecret fetches and decrypts the secret with the given id, then
// records an audit_log "access" entry and bumps last_accessed.
func (s *Store) GetSecret(ctx context.Context, key []byte, id string) (model.SecretEntry, error) {
	aead, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return model.SecretEntry{}, vaulterrors.New(vaulterrors.KindInternal, "get_secret", err)
	}

	var r secretRow

	row := s.exec.QueryRowContext(ctx, selectSecretByID, id)

	if err := row.Scan(&r.id, &r.name, &r.description, &r.tags, &r.secretType, &r.environment, &r.project,
		&r.favorite, &r.encryptedData, &r.createdAt, &r.updatedAt, &r.lastAccessed, &r.expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SecretEntry{}, vaulterrors.New(vaulterrors.KindNotFound, "get_secret", err)
		}

		return model.SecretEntry{}, vaulterrors.New(vaulterrors.KindIO, "get_secret", err)
	}

	e, err := r.decrypt(aead)
	if err != nil {
		return model.SecretEntry{}, err
	}

	now := formatTime(time.Now())
	if _, err := s.exec.ExecContext(ctx, `UPDATE secrets SET last_accessed = ? WHERE id = ?`, now, id); err != nil {
		return model.SecretEntry{}, vaulterrors.New(vaulterrors.KindIO, "get_secret", err)
	}

	if err := s.recordAudit(ctx, id, "access", ""); err != nil {
		return model.SecretEntry{}, err
	}

	return e, nil
}

const updateSecret = `
	UPDATE secrets
	SET name = ?, description = ?, tags = ?, secret_type = ?, environment = ?, project = ?, favorite = ?,
		encrypted_data = ?, updated_at = ?, expires_at = ?
	WHERE id = ?
`

// UpdateSecret re-encrypts and overwrites the row with id e.ID, then
// records an audit_log "update" entry.
func (s *Store) UpdateSecret(ctx context.Context, key []byte, e model.SecretEntry) error {
	aead, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindInternal, "update_secret", err)
	}

	raw, err := model.MarshalSecretData(e.Data)
	if err != nil {
		return err
	}

	blob, err := aead.SealBlob(raw)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindInternal, "update_secret", err)
	}

	res, err := s.exec.ExecContext(ctx, updateSecret,
		e.Name, e.Description, joinTags(e.Tags), string(e.Type), nullIfEmpty(e.Environment), nullIfEmpty(e.Project),
		boolToInt(e.Favorite), blob, formatTime(e.UpdatedAt), formatTimePtr(e.ExpiresAt), e.ID)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindIO, "update_secret", err)
	}

	if err := checkRowsAffected(res, "update_secret"); err != nil {
		return err
	}

	return s.recordAudit(ctx, e.ID, "update", "")
}

const deleteSecret = `DELETE FROM secrets WHERE id = ?`

// DeleteSecret removes the row with the given id. The ON DELETE CASCADE on
// audit_log removes the secret's audit rows together with it, so no audit
// row of the deletion is kept.
func (s *Store) DeleteSecret(ctx context.Context, id string) error {
	res, err := s.exec.ExecContext(ctx, deleteSecret, id)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindIO, "delete_secret", err)
	}

	return checkRowsAffected(res, "delete_secret")
}

// SecretFilter narrows [Store.SearchSecrets] results. Query is matched
// case-insensitively as a substring against name+description+tags.
type SecretFilter struct {
	Query        string
	Type         model.SecretType
	Environment  string
	Project      string
	Tags         []string
	FavoriteOnly bool
}

const selectAllSecrets = `
	SELECT id, name, description, tags, secret_type, environment, project, favorite, encrypted_data, created_at, updated_at, last_accessed, expires_at
	FROM secrets
`

// SearchSecrets returns every secret matching filter, decrypted, ordered
// by updated_at descending and id ascending as a tiebreaker. secret_type,
// environment, and project are pushed to SQL; query/tags/favorite filters
// run in Go for exact substring/"all tags present" semantics.
func (s *Store) SearchSecrets(ctx context.Context, key []byte, filter SecretFilter) ([]model.SecretEntry, error) {
	aead, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return nil, vaulterrors.New(vaulterrors.KindInternal, "search_secrets", err)
	}

	query := selectAllSecrets

	var (
		clauses []string
		args    []any
	)

	if filter.Type != "" {
		clauses = append(clauses, "secret_type = ?")
		args = append(args, string(filter.Type))
	}

	if filter.Environment != "" {
		clauses = append(clauses, "environment = ?")
		args = append(args, filter.Environment)
	}

	if filter.Project != "" {
		clauses = append(clauses, "project = ?")
		args = append(args, filter.Project)
	}

	if len(clauses) > 0 {
		query += " WHERE " + joinAnd(clauses)
	}

	query += " ORDER BY updated_at DESC, id ASC"

	rows, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, vaulterrors.New(vaulterrors.KindIO, "search_secrets", err)
	}
	defer func() { _ = rows.Close() }()

	want := normalizeTags(filter.Tags)
	q := strings.ToLower(strings.TrimSpace(filter.Query))

	var out []model.SecretEntry

	for rows.Next() {
		var r secretRow
		if err := rows.Scan(&r.id, &r.name, &r.description, &r.tags, &r.secretType, &r.environment, &r.project,
			&r.favorite, &r.encryptedData, &r.createdAt, &r.updatedAt, &r.lastAccessed, &r.expiresAt); err != nil {
			return nil, vaulterrors.New(vaulterrors.KindIO, "search_secrets", err)
		}

		if filter.FavoriteOnly && r.favorite == 0 {
			continue
		}

		if !hasAllTags(splitTags(r.tags), want) {
			continue
		}

		if q != "" && !secretMatchesQuery(r, q) {
			continue
		}

		e, err := r.decrypt(aead)
		if err != nil {
			return nil, err
		}

		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, vaulterrors.New(vaulterrors.KindIO, "search_secrets", err)
	}

	return out, nil
}

func secretMatchesQuery(r secretRow, query string) bool {
	haystack := strings.ToLower(r.name + " " + r.description + " " + r.tags)
	return strings.Contains(haystack, query)
}

const selectExpiring = `
	SELECT id, name, description, tags, secret_type, environment, project, favorite, encrypted_data, created_at, updated_at, last_accessed, expires_at
	FROM secrets
	WHERE expires_at IS NOT NULL AND expires_at <= ?
	ORDER BY expires_at
`

// ExpiringSecrets returns every secret whose expires_at is within window of
// now, decrypted, ordered soonest-first.
func (s *Store) ExpiringSecrets(ctx context.Context, key []byte, now time.Time, window time.Duration) ([]model.SecretEntry, error) {
	aead, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return nil, vaulterrors.New(vaulterrors.KindInternal, "expiring_secrets", err)
	}

	cutoff := formatTime(now.Add(window))

	rows, err := s.exec.QueryContext(ctx, selectExpiring, cutoff)
	if err != nil {
		return nil, vaulterrors.New(vaulterrors.KindIO, "expiring_secrets", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.SecretEntry

	for rows.Next() {
		var r secretRow
		if err := rows.Scan(&r.id, &r.name, &r.description, &r.tags, &r.secretType, &r.environment, &r.project,
			&r.favorite, &r.encryptedData, &r.createdAt, &r.updatedAt, &r.lastAccessed, &r.expiresAt); err != nil {
			return nil, vaulterrors.New(vaulterrors.KindIO, "expiring_secrets", err)
		}

		e, err := r.decrypt(aead)
		if err != nil {
			return nil, err
		}

		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, vaulterrors.New(vaulterrors.KindIO, "expiring_secrets", err)
	}

	return out, nil
}

// SecretsStats summarizes the secrets table without requiring the session
// key: it reads only clear-text index columns.
type SecretsStats struct {
	Total      int
	ByType     map[model.SecretType]int
	Favorites  int
	Expiring7d int
}

// SecretsStats computes aggregate counts over the secrets table.
func (s *Store) SecretsStats(ctx context.Context, now time.Time) (SecretsStats, error) {
	stats := SecretsStats{ByType: make(map[model.SecretType]int)}

	rows, err := s.exec.QueryContext(ctx, `SELECT secret_type, favorite, expires_at FROM secrets`)
	if err != nil {
		return stats, vaulterrors.New(vaulterrors.KindIO, "secrets_stats", err)
	}
	defer func() { _ = rows.Close() }()

	cutoff := formatTime(now.Add(7 * 24 * time.Hour))

	for rows.Next() {
		var (
			secretType string
			favorite   int
			expiresAt  sql.NullString
		)

		if err := rows.Scan(&secretType, &favorite, &expiresAt); err != nil {
			return stats, vaulterrors.New(vaulterrors.KindIO, "secrets_stats", err)
		}

		stats.Total++
		stats.ByType[model.SecretType(secretType)]++

		if favorite != 0 {
			stats.Favorites++
		}

		if expiresAt.Valid && expiresAt.String <= cutoff {
			stats.Expiring7d++
		}
	}

	if err := rows.Err(); err != nil {
		return stats, vaulterrors.New(vaulterrors.KindIO, "secrets_stats", err)
	}

	return stats, nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}

	return sql.NullString{String: s, Valid: true}
}

func joinAnd(clauses []string) string {
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}

	return out
}
