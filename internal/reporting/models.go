package reporting

import (
	"time"

	"ivr-platform/internal/calls"
)

// TimeRange is half-open: [From, To).
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r TimeRange) valid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && r.To.After(r.From)
}

func (r TimeRange) contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

// CallRecord is one finished call with its IVR attempt.
type CallRecord struct {
	Call    calls.Call
	Attempt calls.OutreachAttempt
}

// CampaignSummaryRequest selects calls of one campaign that ended inside Range.
// Workspace isolation: WorkspaceID is required.
type CampaignSummaryRequest struct {
	WorkspaceID string    `json:"workspace_id"`
	CampaignID  string    `json:"campaign_id"`
	Range       TimeRange `json:"range"`
}

type CampaignSummary struct {
	WorkspaceID string `json:"workspace_id"`
	CampaignID  string `json:"campaign_id"`

	TotalCalls     int `json:"total_calls"`
	AnsweredCalls  int `json:"answered_calls"`
	VoicemailCalls int `json:"voicemail_calls"`

	// Dispositions counts attempts by disposition; "" is reported as "none".
	Dispositions map[string]int `json:"dispositions"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	// Responses tallies captured answers: page -> block title -> answer -> count.
	// Recorded answers are counted under RecordedAnswer.
	Responses map[string]map[string]map[string]int `json:"responses"`
}

// RecordedAnswer is the tally bucket for free-form recorded answers.
const RecordedAnswer = "(recording)"

// SpendSummaryRequest aggregates ledger rows created inside Range.
type SpendSummaryRequest struct {
	WorkspaceID string    `json:"workspace_id"`
	Range       TimeRange `json:"range"`
}

type SpendSummary struct {
	WorkspaceID string `json:"workspace_id"`

	TotalDebits  int64 `json:"total_debits"`
	TotalCredits int64 `json:"total_credits"`
	NetDelta     int64 `json:"net_delta"`

	CallDebits  int64 `json:"call_debits"`
	CallsBilled int   `json:"calls_billed"`
}
