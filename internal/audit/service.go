package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records internal audit events for call gating and billing.
//
// Audit is internal-only. Callers treat it as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.WorkspaceID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogCallCanceled records a call stopped at initiation by a gate.
func (s *Service) LogCallCanceled(ctx context.Context, workspaceID, campaignID, callSID, reason string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeCallCanceled,
		CampaignID:  campaignID,
		CallSID:     callSID,
		Reason:      reason,
		Message:     "call canceled at initiation",
	})
}

// LogCampaignDeactivated records a campaign switched off for lack of credits.
func (s *Service) LogCampaignDeactivated(ctx context.Context, workspaceID, campaignID, callSID, reason string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeCampaignDeactivated,
		CampaignID:  campaignID,
		CallSID:     callSID,
		Reason:      reason,
		Message:     "campaign deactivated",
	})
}

// LogCallDebited records the completion charge for a call.
func (s *Service) LogCallDebited(ctx context.Context, workspaceID, campaignID, callSID string, credits int64) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeCallDebited,
		CampaignID:  campaignID,
		CallSID:     callSID,
		Message:     fmt.Sprintf("debited %d credits", credits),
	})
}
