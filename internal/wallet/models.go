package wallet

import "time"

// Transaction is one immutable row of transaction_history.
// Invariant: workspace.credits only changes together with an inserted row.
type Transaction struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace" db:"workspace"`

	Type TransactionType `json:"type" db:"type"`

	// Amount is the signed credit delta: top-ups positive, debits negative.
	Amount int64  `json:"amount" db:"amount"`
	Note   string `json:"note,omitempty" db:"note"`

	// IdempotencyKey is unique per workspace, e.g. "call:<sid>" for call debits.
	IdempotencyKey string `json:"idempotency_key" db:"idempotency_key"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
)

// Balance is a workspace credit balance. It may go negative: usage is
// charged after the fact and is never refused.
type Balance struct {
	WorkspaceID string `json:"workspace"`
	Credits     int64  `json:"credits"`
}

// PostResult is returned by Debit and Credit. Duplicate means the idempotency
// key was already used and Transaction is the original row.
type PostResult struct {
	Transaction Transaction `json:"transaction"`
	Balance     Balance     `json:"balance"`
	Duplicate   bool        `json:"duplicate"`
}

type DebitRequest struct {
	Amount         int64  `json:"amount"`
	Note           string `json:"note,omitempty"`
	IdempotencyKey string `json:"idempotency_key"`
}

type CreditRequest struct {
	Amount         int64  `json:"amount"`
	Note           string `json:"note,omitempty"`
	IdempotencyKey string `json:"idempotency_key"`
}
