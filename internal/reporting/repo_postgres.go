package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ivr-platform/internal/calls"
	"ivr-platform/internal/wallet"

	"github.com/jmoiron/sqlx"
)

// PostgresRepo reads the call, outreach_attempt and transaction_history tables.
type PostgresRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

type callRecordRow struct {
	SID         string            `db:"sid"`
	WorkspaceID string            `db:"workspace"`
	CampaignID  string            `db:"campaign_id"`
	Status      sql.NullString    `db:"status"`
	Duration    sql.NullInt64     `db:"duration"`
	EndTime     sql.NullTime      `db:"end_time"`
	AttemptID   string            `db:"attempt_id"`
	CurrentStep sql.NullString    `db:"current_step"`
	Result      calls.Result      `db:"result"`
	Disposition calls.Disposition `db:"disposition"`
	AnsweredAt  sql.NullTime      `db:"answered_at"`
	EndedAt     sql.NullTime      `db:"ended_at"`
}

const selectCallRecords = `
SELECT c.sid, c.workspace, c.campaign_id, c.status, c.duration, c.end_time,
       a.id AS attempt_id, a.current_step, a.result, a.disposition, a.answered_at, a.ended_at
FROM call c
JOIN outreach_attempt a ON a.id = c.outreach_attempt_id
WHERE c.workspace = $1 AND c.campaign_id = $2
  AND c.end_time >= $3 AND c.end_time < $4
ORDER BY c.end_time
`

func (r *PostgresRepo) ListCallRecords(ctx context.Context, workspaceID, campaignID string, from, to time.Time) ([]CallRecord, error) {
	var rows []callRecordRow
	if err := r.db.SelectContext(ctx, &rows, selectCallRecords, workspaceID, campaignID, from, to); err != nil {
		return nil, fmt.Errorf("reporting: list calls: %w", err)
	}
	out := make([]CallRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, CallRecord{
			Call: calls.Call{
				SID:               row.SID,
				WorkspaceID:       row.WorkspaceID,
				CampaignID:        row.CampaignID,
				OutreachAttemptID: row.AttemptID,
				Status:            calls.CallStatus(row.Status.String),
				DurationSeconds:   int(row.Duration.Int64),
				EndTime:           nullTime(row.EndTime),
			},
			Attempt: calls.OutreachAttempt{
				ID:          row.AttemptID,
				WorkspaceID: row.WorkspaceID,
				CampaignID:  row.CampaignID,
				CurrentStep: row.CurrentStep.String,
				Result:      row.Result,
				Disposition: row.Disposition,
				AnsweredAt:  nullTime(row.AnsweredAt),
				EndedAt:     nullTime(row.EndedAt),
			},
		})
	}
	return out, nil
}

const selectTransactions = `
SELECT id, workspace, type, amount, coalesce(note, '') AS note, idempotency_key, created_at
FROM transaction_history
WHERE workspace = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at
`

func (r *PostgresRepo) ListTransactions(ctx context.Context, workspaceID string, from, to time.Time) ([]wallet.Transaction, error) {
	var txs []wallet.Transaction
	if err := r.db.SelectContext(ctx, &txs, selectTransactions, workspaceID, from, to); err != nil {
		return nil, fmt.Errorf("reporting: list transactions: %w", err)
	}
	return txs, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
