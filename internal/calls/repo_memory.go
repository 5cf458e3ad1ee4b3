package calls

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ivr-platform/internal/script"
)

// MemoryRepo is an in-memory Repository useful for tests and local runs.
// It is not intended for production use.
type MemoryRepo struct {
	mu sync.Mutex

	calls      map[string]Call
	attempts   map[string]OutreachAttempt
	campaigns  map[string]Campaign
	scripts    map[string]*script.Script // by campaign id
	workspaces map[string]Workspace

	// hidden counts how many more lookups of a call SID report ErrCallNotFound,
	// simulating a row that is not yet visible.
	hidden map[string]int

	writes int

	// DeactivateErr, when set, is returned by DeactivateCampaign.
	DeactivateErr error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		calls:      map[string]Call{},
		attempts:   map[string]OutreachAttempt{},
		campaigns:  map[string]Campaign{},
		scripts:    map[string]*script.Script{},
		workspaces: map[string]Workspace{},
		hidden:     map[string]int{},
	}
}

// Put stores every row of b.
func (r *MemoryRepo) Put(b Bundle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.Attempt.Result = b.Attempt.Result.Clone()
	r.calls[b.Call.SID] = b.Call
	r.attempts[b.Attempt.ID] = b.Attempt
	r.campaigns[b.Campaign.ID] = b.Campaign
	if b.Script != nil {
		r.scripts[b.Campaign.ID] = b.Script
	}
}

func (r *MemoryRepo) PutWorkspace(w Workspace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workspaces[w.ID] = w
}

// HideFor makes the next n lookups of callSID miss.
func (r *MemoryRepo) HideFor(callSID string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hidden[callSID] = n
}

// Writes returns how many mutations were applied.
func (r *MemoryRepo) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *MemoryRepo) Attempt(id string) (OutreachAttempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if ok {
		a.Result = a.Result.Clone()
	}
	return a, ok
}

func (r *MemoryRepo) Call(sid string) (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[sid]
	return c, ok
}

func (r *MemoryRepo) Campaign(id string) (Campaign, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	return c, ok
}

func (r *MemoryRepo) FindBundle(ctx context.Context, callSID string) (Bundle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := r.hidden[callSID]; n > 0 {
		r.hidden[callSID] = n - 1
		return Bundle{}, ErrCallNotFound
	}
	c, ok := r.calls[callSID]
	if !ok {
		return Bundle{}, ErrCallNotFound
	}
	a, ok := r.attempts[c.OutreachAttemptID]
	if !ok {
		return Bundle{}, fmt.Errorf("%w: outreach attempt for call %s", ErrNotFound, callSID)
	}
	cp, ok := r.campaigns[c.CampaignID]
	if !ok {
		return Bundle{}, fmt.Errorf("%w: campaign for call %s", ErrNotFound, callSID)
	}
	a.Result = a.Result.Clone()
	return Bundle{Call: c, Attempt: a, Campaign: cp, Script: r.scripts[c.CampaignID]}, nil
}

func (r *MemoryRepo) FindWorkspace(ctx context.Context, workspaceID string) (Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workspaces[workspaceID]
	if !ok {
		return Workspace{}, fmt.Errorf("%w: workspace %s", ErrNotFound, workspaceID)
	}
	return w, nil
}

func (r *MemoryRepo) FindCallWorkspace(ctx context.Context, callSID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := r.hidden[callSID]; n > 0 {
		r.hidden[callSID] = n - 1
		return "", ErrCallNotFound
	}
	c, ok := r.calls[callSID]
	if !ok {
		return "", ErrCallNotFound
	}
	return c.WorkspaceID, nil
}

func (r *MemoryRepo) RecordProgress(ctx context.Context, attemptID string, entry *ResultEntry, next script.StepID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[attemptID]
	if !ok {
		return ErrNotFound
	}
	if entry != nil {
		if a.Result == nil {
			a.Result = Result{}
		}
		a.Result.Set(*entry)
	}
	a.CurrentStep = next.String()
	r.attempts[attemptID] = a
	r.writes++
	return nil
}

func (r *MemoryRepo) SetDisposition(ctx context.Context, attemptID string, d Disposition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[attemptID]
	if !ok {
		return ErrNotFound
	}
	a.Disposition = d
	r.attempts[attemptID] = a
	r.writes++
	return nil
}

func (r *MemoryRepo) UpdateCallStatus(ctx context.Context, callSID string, u StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callSID]
	if !ok {
		return ErrNotFound
	}
	c.Status = u.Status
	if u.DurationSeconds != nil {
		c.DurationSeconds = *u.DurationSeconds
	}
	at := u.At
	if u.Status.IsAnswered() && c.StartTime == nil {
		c.StartTime = &at
	}
	if u.Status.IsTerminal() && c.EndTime == nil {
		c.EndTime = &at
	}
	r.calls[callSID] = c
	r.writes++
	return nil
}

func (r *MemoryRepo) MarkAnswered(ctx context.Context, attemptID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[attemptID]
	if !ok {
		return ErrNotFound
	}
	if a.AnsweredAt == nil {
		a.AnsweredAt = &at
		r.attempts[attemptID] = a
		r.writes++
	}
	return nil
}

func (r *MemoryRepo) MarkEnded(ctx context.Context, attemptID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[attemptID]
	if !ok {
		return ErrNotFound
	}
	if a.EndedAt == nil {
		a.EndedAt = &at
		r.attempts[attemptID] = a
		r.writes++
	}
	return nil
}

func (r *MemoryRepo) DeactivateCampaign(ctx context.Context, campaignID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.DeactivateErr != nil {
		return r.DeactivateErr
	}
	c, ok := r.campaigns[campaignID]
	if !ok {
		return ErrNotFound
	}
	c.IsActive = false
	r.campaigns[campaignID] = c
	r.writes++
	return nil
}
