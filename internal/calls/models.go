package calls

import (
	"time"

	"ivr-platform/internal/script"
)

// Call is one outbound telephony attempt, keyed by the provider call SID.
//
// Created by the campaign dialer (outside this service); every status webhook
// mutates Status/Duration. Terminal once a terminal status is recorded.
type Call struct {
	SID               string     `json:"sid" db:"sid"`
	WorkspaceID       string     `json:"workspace" db:"workspace"`
	CampaignID        string     `json:"campaign_id" db:"campaign_id"`
	OutreachAttemptID string     `json:"outreach_attempt_id" db:"outreach_attempt_id"`
	Status            CallStatus `json:"status" db:"status"`

	// DurationSeconds is the provider-reported duration in seconds.
	DurationSeconds int `json:"duration" db:"duration"`

	StartTime *time.Time `json:"start_time,omitempty" db:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" db:"end_time"`
}

type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusInitiated  CallStatus = "initiated"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusAnswered   CallStatus = "answered"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusBusy       CallStatus = "busy"
	CallStatusNoAnswer   CallStatus = "no-answer"
	CallStatusCanceled   CallStatus = "canceled"
)

// IsTerminal reports whether no further status events are expected.
func (s CallStatus) IsTerminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusFailed, CallStatusBusy, CallStatusNoAnswer, CallStatusCanceled:
		return true
	default:
		return false
	}
}

// IsAnswered reports whether the status means a party picked up.
func (s CallStatus) IsAnswered() bool {
	return s == CallStatusAnswered || s == CallStatusInProgress
}

// OutreachAttempt tracks IVR progress for one call.
type OutreachAttempt struct {
	ID          string      `json:"id" db:"id"`
	WorkspaceID string      `json:"workspace" db:"workspace"`
	CampaignID  string      `json:"campaign_id" db:"campaign_id"`
	CurrentStep string      `json:"current_step" db:"current_step"`
	Result      Result      `json:"result" db:"result"`
	Disposition Disposition `json:"disposition,omitempty" db:"disposition"`
	AnsweredAt  *time.Time  `json:"answered_at,omitempty" db:"answered_at"`
	EndedAt     *time.Time  `json:"ended_at,omitempty" db:"ended_at"`
}

// Step parses CurrentStep. An empty value means the attempt has not started
// and resolves to the first block of s (or script.Initial when s is nil).
func (a OutreachAttempt) Step(s *script.Script) (script.StepID, error) {
	if a.CurrentStep == "" {
		if s == nil {
			return script.Initial, nil
		}
		return s.First(), nil
	}
	return script.ParseStepID(a.CurrentStep)
}

type Disposition string

const (
	DispositionNone               Disposition = ""
	DispositionCompleted          Disposition = "completed"
	DispositionVoicemail          Disposition = "voicemail"
	DispositionVoicemailNoMessage Disposition = "voicemail-no-message"
	DispositionNoAnswer           Disposition = "no-answer"
	DispositionBusy               Disposition = "busy"
	DispositionFailed             Disposition = "failed"
	DispositionCanceled           Disposition = "canceled"
)

// IsVoicemail reports whether d was set by answering-machine handling. Such
// dispositions are final and must survive the completion event.
func (d Disposition) IsVoicemail() bool {
	return d == DispositionVoicemail || d == DispositionVoicemailNoMessage
}

// DispositionForStatus maps a terminal call status to the attempt disposition.
func DispositionForStatus(s CallStatus) Disposition {
	switch s {
	case CallStatusCompleted:
		return DispositionCompleted
	case CallStatusNoAnswer:
		return DispositionNoAnswer
	case CallStatusBusy:
		return DispositionBusy
	case CallStatusCanceled:
		return DispositionCanceled
	default:
		return DispositionFailed
	}
}

type Campaign struct {
	ID            string `json:"id" db:"id"`
	WorkspaceID   string `json:"workspace" db:"workspace"`
	Name          string `json:"name" db:"name"`
	Type          string `json:"type" db:"type"`
	IsActive      bool   `json:"is_active" db:"is_active"`
	VoicemailFile string `json:"voicemail_file,omitempty" db:"voicemail_file"`
}

// Workspace carries the credit balance and the provider credentials used to
// verify webhooks and call back into the provider.
type Workspace struct {
	ID               string `json:"id" db:"id"`
	Name             string `json:"name" db:"name"`
	Credits          int64  `json:"credits" db:"credits"`
	TwilioAccountSID string `json:"-" db:"twilio_account_sid"`
	TwilioAuthToken  string `json:"-" db:"twilio_auth_token"`
}

// Bundle is everything a webhook needs to act on one call.
// Script is nil when the campaign has no IVR script attached.
type Bundle struct {
	Call     Call
	Attempt  OutreachAttempt
	Campaign Campaign
	Script   *script.Script
}

// StatusUpdate is the call-row mutation applied by each status event.
type StatusUpdate struct {
	Status          CallStatus
	DurationSeconds *int
	At              time.Time
}

// ResultEntry is one captured answer: result[Page][Key] = Value.
type ResultEntry struct {
	Page  string
	Key   string
	Value any
}
