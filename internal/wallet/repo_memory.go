package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger is an in-memory Ledger with the same idempotency semantics as
// Service. Not for production use.
type MemoryLedger struct {
	mu      sync.Mutex
	credits map[string]int64
	txs     []Transaction
	byKey   map[string]int
	clock   func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		credits: map[string]int64{},
		byKey:   map[string]int{},
		clock:   time.Now,
	}
}

// SetCredits seeds a workspace balance without a ledger row.
func (m *MemoryLedger) SetCredits(workspaceID string, credits int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credits[workspaceID] = credits
}

func (m *MemoryLedger) Transactions() []Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Transaction(nil), m.txs...)
}

func (m *MemoryLedger) Balance(ctx context.Context, workspaceID string) (Balance, error) {
	if workspaceID == "" {
		return Balance{}, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.credits[workspaceID]
	if !ok {
		return Balance{}, ErrNotFound
	}
	return Balance{WorkspaceID: workspaceID, Credits: c}, nil
}

func (m *MemoryLedger) Debit(ctx context.Context, workspaceID string, req DebitRequest) (PostResult, error) {
	if err := validatePosting(workspaceID, req.Amount, req.IdempotencyKey); err != nil {
		return PostResult{}, err
	}
	return m.post(workspaceID, TransactionTypeDebit, -req.Amount, req.Note, req.IdempotencyKey)
}

func (m *MemoryLedger) Credit(ctx context.Context, workspaceID string, req CreditRequest) (PostResult, error) {
	if err := validatePosting(workspaceID, req.Amount, req.IdempotencyKey); err != nil {
		return PostResult{}, err
	}
	return m.post(workspaceID, TransactionTypeCredit, req.Amount, req.Note, req.IdempotencyKey)
}

func (m *MemoryLedger) post(workspaceID string, typ TransactionType, delta int64, note, key string) (PostResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.credits[workspaceID]
	if !ok {
		return PostResult{}, ErrNotFound
	}
	if i, ok := m.byKey[workspaceID+"\x00"+key]; ok {
		return PostResult{Transaction: m.txs[i], Balance: Balance{WorkspaceID: workspaceID, Credits: c}, Duplicate: true}, nil
	}

	t := Transaction{
		ID:             uuid.NewString(),
		WorkspaceID:    workspaceID,
		Type:           typ,
		Amount:         delta,
		Note:           note,
		IdempotencyKey: key,
		CreatedAt:      m.clock().UTC(),
	}
	m.byKey[workspaceID+"\x00"+key] = len(m.txs)
	m.txs = append(m.txs, t)
	m.credits[workspaceID] = c + delta
	return PostResult{Transaction: t, Balance: Balance{WorkspaceID: workspaceID, Credits: c + delta}}, nil
}
