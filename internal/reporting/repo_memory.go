package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"ivr-platform/internal/wallet"
)

// MemoryRepo is an in-memory reporting repository for tests.
// It enforces workspace isolation on reads.
type MemoryRepo struct {
	mu sync.Mutex

	Records      []CallRecord
	Transactions []wallet.Transaction
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListCallRecords(ctx context.Context, workspaceID, campaignID string, from, to time.Time) ([]CallRecord, error) {
	if workspaceID == "" {
		return nil, errors.New("workspace_id required")
	}
	rng := TimeRange{From: from, To: to}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallRecord, 0)
	for _, rec := range r.Records {
		if rec.Call.WorkspaceID != workspaceID || rec.Call.CampaignID != campaignID {
			continue
		}
		if rec.Call.EndTime == nil || !rng.contains(*rec.Call.EndTime) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *MemoryRepo) ListTransactions(ctx context.Context, workspaceID string, from, to time.Time) ([]wallet.Transaction, error) {
	if workspaceID == "" {
		return nil, errors.New("workspace_id required")
	}
	rng := TimeRange{From: from, To: to}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wallet.Transaction, 0)
	for _, t := range r.Transactions {
		if t.WorkspaceID != workspaceID || !rng.contains(t.CreatedAt) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
