package store

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/hxhippy/pwgen/model"
	"github.com/hxhippy/pwgen/util"
	"github.com/hxhippy/pwgen/vaultcrypto"
	"github.com/hxhippy/pwgen/vaulterrors"
)

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))

	out := make([]string, 0, len(tags))

	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}

		seen[t] = true

		out = append(out, t)
	}

	sort.Strings(out)

	return out
}

func joinTags(tags []string) string {
	return strings.Join(normalizeTags(tags), ",")
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}

	return util.ParseCommaSeparated(raw)
}

const insertEntry = `
	INSERT INTO password_entries
		(id, site, username, notes, tags, favorite, encrypted_data, created_at, updated_at, last_used)
	VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// AddEntry encrypts e.Password under key and inserts the row. It fails with
// [vaulterrors.ErrDuplicate] if (site, username) already exists.
func (s *Store) AddEntry(ctx context.Context, key []byte, e model.PasswordEntry) error {
	aead, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindInternal, "add_entry", err)
	}

	blob, err := aead.SealBlob([]byte(e.Password))
	if err != nil {
		return vaulterrors.New(vaulterrors.KindInternal, "add_entry", err)
	}

	_, err = s.exec.ExecContext(ctx, insertEntry,
		e.ID, e.Site, e.Username, e.Notes, joinTags(e.Tags), boolToInt(e.Favorite), blob,
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt), formatTimePtr(e.LastUsed))
	if err != nil {
		if isUniqueViolation(err) {
			return vaulterrors.New(vaulterrors.KindDuplicate, "add_entry", err)
		}

		return vaulterrors.New(vaulterrors.KindIO, "add_entry", err)
	}

	return nil
}

type entryRow struct {
	id            string
	site          string
	username      string
	notes         string
	tags          string
	favorite      int
	encryptedData []byte
	createdAt     string
	updatedAt     string
	lastUsed      sql.NullString
}

func (r entryRow) decrypt(aead *vaultcrypto.AESGCM) (model.PasswordEntry, error) {
	plaintext, err := aead.OpenBlob(r.encryptedData)
	if err != nil {
		return model.PasswordEntry{}, vaulterrors.New(vaulterrors.KindDecrypt, "decrypt_entry", err)
	}

	e := model.PasswordEntry{
		ID:       r.id,
		Site:     r.site,
		Username: r.username,
		Password: string(plaintext),
		Notes:    r.notes,
		Tags:     splitTags(r.tags),
		Favorite: r.favorite != 0,
	}

	e.CreatedAt = parseTime(r.createdAt)
	e.UpdatedAt = parseTime(r.updatedAt)
	e.LastUsed = parseTimePtr(r.lastUsed)

	return e, nil
}

const selectEntryByID = `
	SELECT id, site, username, notes, tags, favorite, encrypted_data, created_at, updated_at, last_used
	FROM password_entries
	WHERE id = ?
`

// GetEntry fetches and decrypts the entry with the given id.
func (s *Store) GetEntry(ctx context.Context, key []byte, id string) (model.PasswordEntry, error) {
	aead, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return model.PasswordEntry{}, vaulterrors.New(vaulterrors.KindInternal, "get_entry", err)
	}

	var r entryRow

	row := s.exec.QueryRowContext(ctx, selectEntryByID, id)
	if err := row.Scan(&r.id, &r.site, &r.username, &r.notes, &r.tags, &r.favorite, &r.encryptedData, &r.createdAt, &r.updatedAt, &r.lastUsed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PasswordEntry{}, vaulterrors.New(vaulterrors.KindNotFound, "get_entry", err)
		}

		return model.PasswordEntry{}, vaulterrors.New(vaulterrors.KindIO, "get_entry", err)
	}

	return r.decrypt(aead)
}

const updateEntry = `
	UPDATE password_entries
	SET site = ?, username = ?, notes = ?, tags = ?, favorite = ?, encrypted_data = ?, updated_at = ?, last_used = ?
	WHERE id = ?
`

// UpdateEntry re-encrypts and overwrites the row with id e.ID. It fails
// with [vaulterrors.ErrNotFound] if no such row exists.
func (s *Store) UpdateEntry(ctx context.Context, key []byte, e model.PasswordEntry) error {
	aead, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindInternal, "update_entry", err)
	}

	blob, err := aead.SealBlob([]byte(e.Password))
	if err != nil {
		return vaulterrors.New(vaulterrors.KindInternal, "update_entry", err)
	}

	res, err := s.exec.ExecContext(ctx, updateEntry,
		e.Site, e.Username, e.Notes, joinTags(e.Tags), boolToInt(e.Favorite), blob,
		formatTime(e.UpdatedAt), formatTimePtr(e.LastUsed), e.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return vaulterrors.New(vaulterrors.KindDuplicate, "update_entry", err)
		}

		return vaulterrors.New(vaulterrors.KindIO, "update_entry", err)
	}

	return checkRowsAffected(res, "update_entry")
}

const deleteEntry = `DELETE FROM password_entries WHERE id = ?`

// DeleteEntry removes the row with the given id.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.exec.ExecContext(ctx, deleteEntry, id)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindIO, "delete_entry", err)
	}

	return checkRowsAffected(res, "delete_entry")
}

// EntryFilter narrows [Store.SearchEntries] results. An empty filter
// matches every row. Query is matched case-insensitively as a substring
// against site+username+notes+tags.
type EntryFilter struct {
	Query        string
	Tags         []string // entry must carry every listed tag
	FavoriteOnly bool
}

const selectAllEntries = `
	SELECT id, site, username, notes, tags, favorite, encrypted_data, created_at, updated_at, last_used
	FROM password_entries
	ORDER BY updated_at DESC, id ASC
`

// SearchEntries returns every entry matching filter, decrypted, ordered by
// updated_at descending and id ascending as a tiebreaker. The clear-text
// prefilter (favorite, tags, substring query) runs in Go over the indexed
// columns; the encrypted blob is never searched.
func (s *Store) SearchEntries(ctx context.Context, key []byte, filter EntryFilter) ([]model.PasswordEntry, error) {
	aead, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return nil, vaulterrors.New(vaulterrors.KindInternal, "search_entries", err)
	}

	rows, err := s.exec.QueryContext(ctx, selectAllEntries)
	if err != nil {
		return nil, vaulterrors.New(vaulterrors.KindIO, "search_entries", err)
	}
	defer func() { _ = rows.Close() }()

	want := normalizeTags(filter.Tags)
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	var out []model.PasswordEntry

	for rows.Next() {
		var r entryRow
		if err := rows.Scan(&r.id, &r.site, &r.username, &r.notes, &r.tags, &r.favorite, &r.encryptedData, &r.createdAt, &r.updatedAt, &r.lastUsed); err != nil {
			return nil, vaulterrors.New(vaulterrors.KindIO, "search_entries", err)
		}

		if filter.FavoriteOnly && r.favorite == 0 {
			continue
		}

		if !hasAllTags(splitTags(r.tags), want) {
			continue
		}

		if query != "" && !entryMatchesQuery(r, query) {
			continue
		}

		e, err := r.decrypt(aead)
		if err != nil {
			return nil, err
		}

		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, vaulterrors.New(vaulterrors.KindIO, "search_entries", err)
	}

	return out, nil
}

func entryMatchesQuery(r entryRow, query string) bool {
	haystack := strings.ToLower(r.site + " " + r.username + " " + r.notes + " " + r.tags)
	return strings.Contains(haystack, query)
}

func hasAllTags(have, want []string) bool {
	if len(want) == 0 {
		return true
	}

	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}

	for _, t := range want {
		if !set[t] {
			return false
		}
	}

	return true
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

// timeLayout is fixed-width (RFC3339 with all nine fractional digits) so
// that SQLite's text comparison of stored timestamps follows time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}

	t := parseTime(s.String)

	return &t
}

func checkRowsAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return vaulterrors.New(vaulterrors.KindIO, op, err)
	}

	if n == 0 {
		return vaulterrors.New(vaulterrors.KindNotFound, op, nil)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToUpper(err.Error()), "UNIQUE CONSTRAINT")
}
