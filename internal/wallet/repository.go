package wallet

import (
	"context"
	"database/sql"
	"errors"
)

// NOTE: This repository assumes the following tables exist:
// - workspace (credits bigint)
// - transaction_history (immutable append-only)
//
// and the idempotency constraint UNIQUE (workspace, idempotency_key).

func lockWorkspace(ctx context.Context, tx *sql.Tx, workspaceID string) (Balance, error) {
	// Lock the workspace row to serialize concurrent postings per workspace.
	const q = `SELECT id, credits FROM workspace WHERE id = $1 FOR UPDATE`
	var b Balance
	if err := tx.QueryRowContext(ctx, q, workspaceID).Scan(&b.WorkspaceID, &b.Credits); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Balance{}, ErrNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

func getBalance(ctx context.Context, db *sql.DB, workspaceID string) (Balance, error) {
	const q = `SELECT id, credits FROM workspace WHERE id = $1`
	var b Balance
	if err := db.QueryRowContext(ctx, q, workspaceID).Scan(&b.WorkspaceID, &b.Credits); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Balance{}, ErrNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

func findByIdempotency(ctx context.Context, tx *sql.Tx, workspaceID, key string) (Transaction, bool, error) {
	const q = `
SELECT id, workspace, type, amount, coalesce(note, ''), idempotency_key, created_at
FROM transaction_history
WHERE workspace = $1 AND idempotency_key = $2
LIMIT 1
`
	var t Transaction
	err := tx.QueryRowContext(ctx, q, workspaceID, key).Scan(
		&t.ID,
		&t.WorkspaceID,
		&t.Type,
		&t.Amount,
		&t.Note,
		&t.IdempotencyKey,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transaction{}, false, nil
		}
		return Transaction{}, false, err
	}
	return t, true, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t Transaction) error {
	const q = `
INSERT INTO transaction_history (id, workspace, type, amount, note, idempotency_key, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := tx.ExecContext(ctx, q, t.ID, t.WorkspaceID, t.Type, t.Amount, t.Note, t.IdempotencyKey, t.CreatedAt)
	return err
}

func applyCreditsDelta(ctx context.Context, tx *sql.Tx, workspaceID string, delta int64) (Balance, error) {
	const q = `UPDATE workspace SET credits = credits + $2 WHERE id = $1 RETURNING id, credits`
	var b Balance
	if err := tx.QueryRowContext(ctx, q, workspaceID, delta).Scan(&b.WorkspaceID, &b.Credits); err != nil {
		return Balance{}, err
	}
	return b, nil
}
