package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - workspace is required for tenancy isolation.
// - Audit is best-effort; never block a webhook on an audit failure.
type Event struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace" db:"workspace"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// Target identifiers (optional, depending on the event type).
	CampaignID string `json:"campaign_id,omitempty" db:"campaign_id"`
	CallSID    string `json:"call_sid,omitempty" db:"call_sid"`

	// Reason is a stable machine-readable cause, e.g. "insufficient_credits".
	Reason string `json:"reason,omitempty" db:"reason"`
	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallCanceled        EventType = "call_canceled"
	EventTypeCampaignDeactivated EventType = "campaign_deactivated"
	EventTypeCallDebited         EventType = "call_debited"
)

const (
	ReasonInsufficientCredits = "insufficient_credits"
	ReasonCampaignInactive    = "campaign_inactive"
)
