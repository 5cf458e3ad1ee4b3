package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ivr-platform/pkg/utils"

	"github.com/google/uuid"
)

// Ledger posts credit movements for a workspace.
type Ledger interface {
	Balance(ctx context.Context, workspaceID string) (Balance, error)
	Debit(ctx context.Context, workspaceID string, req DebitRequest) (PostResult, error)
	Credit(ctx context.Context, workspaceID string, req CreditRequest) (PostResult, error)
}

// Service is the Postgres Ledger.
//
// Invariants:
// - No credits change without a transaction_history row
// - transaction_history is append-only
// - Every posting runs in one DB transaction with the workspace row locked
// - A repeated idempotency key returns the original row and changes nothing
type Service struct {
	db *sql.DB
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, clock: time.Now}
}

var (
	ErrNotFound        = errors.New("wallet: workspace not found")
	ErrInvalidArgument = errors.New("wallet: invalid argument")
)

func (s *Service) Balance(ctx context.Context, workspaceID string) (Balance, error) {
	if workspaceID == "" {
		return Balance{}, ErrInvalidArgument
	}
	return getBalance(ctx, s.db, workspaceID)
}

func (s *Service) Debit(ctx context.Context, workspaceID string, req DebitRequest) (PostResult, error) {
	if err := validatePosting(workspaceID, req.Amount, req.IdempotencyKey); err != nil {
		return PostResult{}, err
	}
	return s.post(ctx, workspaceID, TransactionTypeDebit, -req.Amount, req.Note, req.IdempotencyKey)
}

func (s *Service) Credit(ctx context.Context, workspaceID string, req CreditRequest) (PostResult, error) {
	if err := validatePosting(workspaceID, req.Amount, req.IdempotencyKey); err != nil {
		return PostResult{}, err
	}
	return s.post(ctx, workspaceID, TransactionTypeCredit, req.Amount, req.Note, req.IdempotencyKey)
}

func (s *Service) post(ctx context.Context, workspaceID string, typ TransactionType, delta int64, note, key string) (PostResult, error) {
	now := s.clock().UTC()
	id := uuid.NewString()

	var out PostResult
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		bal, err := lockWorkspace(ctx, tx, workspaceID)
		if err != nil {
			return err
		}

		if existing, ok, err := findByIdempotency(ctx, tx, workspaceID, key); err != nil {
			return err
		} else if ok {
			out = PostResult{Transaction: existing, Balance: bal, Duplicate: true}
			return nil
		}

		t := Transaction{
			ID:             id,
			WorkspaceID:    workspaceID,
			Type:           typ,
			Amount:         delta,
			Note:           note,
			IdempotencyKey: key,
			CreatedAt:      now,
		}
		if err := insertTransaction(ctx, tx, t); err != nil {
			return err
		}
		b, err := applyCreditsDelta(ctx, tx, workspaceID, delta)
		if err != nil {
			return err
		}
		out = PostResult{Transaction: t, Balance: b}
		return nil
	})
	return out, err
}

func validatePosting(workspaceID string, amount int64, idempotencyKey string) error {
	if workspaceID == "" {
		return ErrInvalidArgument
	}
	if idempotencyKey == "" {
		return ErrInvalidArgument
	}
	if amount <= 0 {
		return ErrInvalidArgument
	}
	return nil
}
