package repository

import (
	"context"
	"fmt"

	"eventsignup/internal/model"
)

// RecordAudit inserts one audit log row inside the transaction, so audit
// entries commit or roll back together with the change they describe.
func (t *pgTx) RecordAudit(ctx context.Context, entry model.AuditEntry) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO audit_log (actor, ip_address, action, event_id, event_name, signup_id, signup_name, extra, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7, $8, now())`,
		entry.Actor, entry.IPAddress, string(entry.Action),
		entry.EventID, entry.EventName, entry.SignupID, entry.SignupName, entry.Extra,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
