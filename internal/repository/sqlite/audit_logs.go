package sqlite

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/burakozf/splitledger/internal/models"
)

type auditLogsRepo struct{ q querier }

func (r *auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	details := []byte("{}")
	if l.Details != nil {
		var err error
		if details, err = json.Marshal(l.Details); err != nil {
			return err
		}
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO audit_logs (id, entity_type, entity_id, action, details, created_at)
		 VALUES (?,?,?,?,?,?)`,
		l.ID, l.EntityType, l.EntityID, l.Action, string(details), l.CreatedAt)
	return err
}
