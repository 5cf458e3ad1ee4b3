package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ivr-platform/internal/script"

	"github.com/jmoiron/sqlx"
)

// PostgresRepo implements Repository on the call / outreach_attempt /
// campaign / ivr_campaign / script / workspace tables.
type PostgresRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

type bundleRow struct {
	SID               string         `db:"sid"`
	WorkspaceID       string         `db:"workspace"`
	CampaignID        sql.NullString `db:"campaign_id"`
	OutreachAttemptID sql.NullString `db:"outreach_attempt_id"`
	Status            sql.NullString `db:"status"`
	Duration          sql.NullInt64  `db:"duration"`
	StartTime         sql.NullTime   `db:"start_time"`
	EndTime           sql.NullTime   `db:"end_time"`

	AttemptID   sql.NullString `db:"attempt_id"`
	CurrentStep sql.NullString `db:"current_step"`
	Result      Result         `db:"result"`
	Disposition Disposition    `db:"disposition"`
	AnsweredAt  sql.NullTime   `db:"answered_at"`
	EndedAt     sql.NullTime   `db:"ended_at"`

	CampaignName  sql.NullString `db:"campaign_name"`
	CampaignType  sql.NullString `db:"campaign_type"`
	IsActive      sql.NullBool   `db:"is_active"`
	VoicemailFile sql.NullString `db:"voicemail_file"`
	HasCampaign   bool           `db:"has_campaign"`

	Steps []byte `db:"steps"`
}

const selectBundle = `
SELECT c.sid, c.workspace, c.campaign_id, c.outreach_attempt_id, c.status, c.duration, c.start_time, c.end_time,
       a.id AS attempt_id, a.current_step, a.result, a.disposition, a.answered_at, a.ended_at,
       cp.name AS campaign_name, cp.type AS campaign_type, cp.is_active, cp.voicemail_file,
       (cp.id IS NOT NULL) AS has_campaign,
       s.steps
FROM call c
LEFT JOIN outreach_attempt a ON a.id = c.outreach_attempt_id
LEFT JOIN campaign cp ON cp.id = c.campaign_id
LEFT JOIN ivr_campaign ic ON ic.campaign_id = cp.id
LEFT JOIN script s ON s.id = ic.script_id
WHERE c.sid = $1
LIMIT 1
`

func (r *PostgresRepo) FindBundle(ctx context.Context, callSID string) (Bundle, error) {
	var row bundleRow
	if err := r.db.GetContext(ctx, &row, selectBundle, callSID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Bundle{}, ErrCallNotFound
		}
		return Bundle{}, fmt.Errorf("calls: load bundle %s: %w", callSID, err)
	}
	return row.toBundle()
}

func (row bundleRow) toBundle() (Bundle, error) {
	if !row.AttemptID.Valid {
		return Bundle{}, fmt.Errorf("%w: outreach attempt for call %s", ErrNotFound, row.SID)
	}
	if !row.HasCampaign {
		return Bundle{}, fmt.Errorf("%w: campaign for call %s", ErrNotFound, row.SID)
	}

	b := Bundle{
		Call: Call{
			SID:               row.SID,
			WorkspaceID:       row.WorkspaceID,
			CampaignID:        row.CampaignID.String,
			OutreachAttemptID: row.OutreachAttemptID.String,
			Status:            CallStatus(row.Status.String),
			DurationSeconds:   int(row.Duration.Int64),
			StartTime:         nullTime(row.StartTime),
			EndTime:           nullTime(row.EndTime),
		},
		Attempt: OutreachAttempt{
			ID:          row.AttemptID.String,
			WorkspaceID: row.WorkspaceID,
			CampaignID:  row.CampaignID.String,
			CurrentStep: row.CurrentStep.String,
			Result:      row.Result,
			Disposition: row.Disposition,
			AnsweredAt:  nullTime(row.AnsweredAt),
			EndedAt:     nullTime(row.EndedAt),
		},
		Campaign: Campaign{
			ID:            row.CampaignID.String,
			WorkspaceID:   row.WorkspaceID,
			Name:          row.CampaignName.String,
			Type:          row.CampaignType.String,
			IsActive:      row.IsActive.Bool,
			VoicemailFile: row.VoicemailFile.String,
		},
	}
	if b.Attempt.Result == nil {
		b.Attempt.Result = Result{}
	}

	if len(row.Steps) > 0 {
		s, err := script.Parse(row.Steps)
		if err != nil {
			return Bundle{}, fmt.Errorf("calls: script for campaign %s: %w", row.CampaignID.String, err)
		}
		b.Script = s
	}
	return b, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

const selectWorkspace = `
SELECT id, name, credits, coalesce(twilio_account_sid, '') AS twilio_account_sid,
       coalesce(twilio_auth_token, '') AS twilio_auth_token
FROM workspace
`

func (r *PostgresRepo) FindWorkspace(ctx context.Context, workspaceID string) (Workspace, error) {
	var w Workspace
	if err := r.db.GetContext(ctx, &w, selectWorkspace+`WHERE id = $1`, workspaceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Workspace{}, fmt.Errorf("%w: workspace %s", ErrNotFound, workspaceID)
		}
		return Workspace{}, err
	}
	return w, nil
}

func (r *PostgresRepo) FindCallWorkspace(ctx context.Context, callSID string) (string, error) {
	var workspaceID string
	if err := r.db.GetContext(ctx, &workspaceID, `SELECT workspace FROM call WHERE sid = $1`, callSID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrCallNotFound
		}
		return "", fmt.Errorf("calls: load owner of %s: %w", callSID, err)
	}
	return workspaceID, nil
}

func (r *PostgresRepo) RecordProgress(ctx context.Context, attemptID string, entry *ResultEntry, next script.StepID) error {
	if entry == nil {
		const q = `UPDATE outreach_attempt SET current_step = $2 WHERE id = $1`
		return execOne(r.db.ExecContext(ctx, q, attemptID, next.String()))
	}

	value, err := json.Marshal(entry.Value)
	if err != nil {
		return fmt.Errorf("calls: encode result value: %w", err)
	}

	// Merge at the page level so concurrent writers to other pages are kept.
	const q = `
UPDATE outreach_attempt
SET result = jsonb_set(
        coalesce(result, '{}'::jsonb),
        ARRAY[$2::text],
        coalesce(result -> $2::text, '{}'::jsonb) || jsonb_build_object($3::text, $4::jsonb),
        true),
    current_step = $5
WHERE id = $1
`
	return execOne(r.db.ExecContext(ctx, q, attemptID, entry.Page, entry.Key, string(value), next.String()))
}

func (r *PostgresRepo) SetDisposition(ctx context.Context, attemptID string, d Disposition) error {
	const q = `UPDATE outreach_attempt SET disposition = $2 WHERE id = $1`
	return execOne(r.db.ExecContext(ctx, q, attemptID, d))
}

func (r *PostgresRepo) UpdateCallStatus(ctx context.Context, callSID string, u StatusUpdate) error {
	var duration sql.NullInt64
	if u.DurationSeconds != nil {
		duration = sql.NullInt64{Int64: int64(*u.DurationSeconds), Valid: true}
	}
	const q = `
UPDATE call
SET status = $2,
    duration = coalesce($3, duration),
    start_time = CASE WHEN $4 THEN coalesce(start_time, $6) ELSE start_time END,
    end_time = CASE WHEN $5 THEN coalesce(end_time, $6) ELSE end_time END
WHERE sid = $1
`
	return execOne(r.db.ExecContext(ctx, q, callSID, u.Status, duration, u.Status.IsAnswered(), u.Status.IsTerminal(), u.At))
}

func (r *PostgresRepo) MarkAnswered(ctx context.Context, attemptID string, at time.Time) error {
	const q = `UPDATE outreach_attempt SET answered_at = $2 WHERE id = $1 AND answered_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, attemptID, at)
	return err
}

func (r *PostgresRepo) MarkEnded(ctx context.Context, attemptID string, at time.Time) error {
	const q = `UPDATE outreach_attempt SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, attemptID, at)
	return err
}

func (r *PostgresRepo) DeactivateCampaign(ctx context.Context, campaignID string) error {
	const q = `UPDATE campaign SET is_active = false WHERE id = $1`
	return execOne(r.db.ExecContext(ctx, q, campaignID))
}

func execOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
