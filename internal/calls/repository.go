package calls

import (
	"context"
	"errors"
	"time"

	"ivr-platform/internal/script"
)

var (
	// ErrCallNotFound means the call row is not visible (yet). The loader
	// retries on this error only.
	ErrCallNotFound = errors.New("calls: call not found")
	// ErrNotFound is a structural miss (attempt, campaign, workspace). Not retried.
	ErrNotFound = errors.New("calls: not found")
)

// Repository is the persistence port for call state.
//
// Every mutation is a single-row update; rows are never deleted here.
type Repository interface {
	FindBundle(ctx context.Context, callSID string) (Bundle, error)
	FindWorkspace(ctx context.Context, workspaceID string) (Workspace, error)
	// FindCallWorkspace returns the workspace that owns callSID, or
	// ErrCallNotFound.
	FindCallWorkspace(ctx context.Context, callSID string) (string, error)

	// RecordProgress merges entry (if non-nil) into the attempt result and
	// sets current_step to next in one update.
	RecordProgress(ctx context.Context, attemptID string, entry *ResultEntry, next script.StepID) error
	SetDisposition(ctx context.Context, attemptID string, d Disposition) error

	UpdateCallStatus(ctx context.Context, callSID string, u StatusUpdate) error
	// MarkAnswered and MarkEnded only write when the timestamp is still unset.
	MarkAnswered(ctx context.Context, attemptID string, at time.Time) error
	MarkEnded(ctx context.Context, attemptID string, at time.Time) error

	DeactivateCampaign(ctx context.Context, campaignID string) error
}
