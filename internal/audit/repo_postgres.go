package audit

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// PostgresRepo appends to audit_events. The table has no UPDATE/DELETE grants.
type PostgresRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, workspace, type, campaign_id, call_sid, reason, message, created_at)
VALUES (:id, :workspace, :type, :campaign_id, :call_sid, :reason, :message, :created_at)
`
	_, err := r.db.NamedExecContext(ctx, q, e)
	return err
}
