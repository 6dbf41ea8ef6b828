package store

import (
	"context"
	"time"

	"github.com/hxhippy/pwgen/vaulterrors"
)

// AuditEntry is a single row of a secret's access/change trail.
type AuditEntry struct {
	ID         int64
	SecretID   string
	HappenedAt time.Time
	Action     string
	Actor      string
	Details    string
}

const insertAudit = `
	INSERT INTO audit_log (secret_id, happened_at, action, actor, details)
	VALUES (?, ?, ?, ?, ?)
`

func (s *Store) recordAudit(ctx context.Context, secretID, action, details string) error {
	_, err := s.exec.ExecContext(ctx, insertAudit, secretID, formatTime(time.Now()), action, "", details)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindIO, "record_audit", err)
	}

	return nil
}

const selectAuditForSecret = `
	SELECT id, secret_id, happened_at, action, actor, details
	FROM audit_log
	WHERE secret_id = ?
	ORDER BY happened_at
`

// AuditTrail returns every audit_log row for secretID, oldest first.
func (s *Store) AuditTrail(ctx context.Context, secretID string) ([]AuditEntry, error) {
	rows, err := s.exec.QueryContext(ctx, selectAuditForSecret, secretID)
	if err != nil {
		return nil, vaulterrors.New(vaulterrors.KindIO, "audit_trail", err)
	}
	defer func() { _ = rows.Close() }()

	var out []AuditEntry

	for rows.Next() {
		var (
			e          AuditEntry
			happenedAt string
		)

		if err := rows.Scan(&e.ID, &e.SecretID, &happenedAt, &e.Action, &e.Actor, &e.Details); err != nil {
			return nil, vaulterrors.New(vaulterrors.KindIO, "audit_trail", err)
		}

		e.HappenedAt = parseTime(happenedAt)
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, vaulterrors.New(vaulterrors.KindIO, "audit_trail", err)
	}

	return out, nil
}
