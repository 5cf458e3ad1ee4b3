package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ivr-platform/internal/calls"
	"ivr-platform/internal/wallet"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
// Every method filters by workspace.
type Repository interface {
	ListCallRecords(ctx context.Context, workspaceID, campaignID string, from, to time.Time) ([]CallRecord, error)
	ListTransactions(ctx context.Context, workspaceID string, from, to time.Time) ([]wallet.Transaction, error)
}

// CallDebitPrefix marks ledger rows written for finished calls.
const CallDebitPrefix = "call:"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CampaignSummary(ctx context.Context, req CampaignSummaryRequest) (CampaignSummary, error) {
	if req.WorkspaceID == "" || req.CampaignID == "" || !req.Range.valid() {
		return CampaignSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CampaignSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCallRecords(ctx, req.WorkspaceID, req.CampaignID, req.Range.From, req.Range.To)
	if err != nil {
		return CampaignSummary{}, err
	}

	out := CampaignSummary{
		WorkspaceID:  req.WorkspaceID,
		CampaignID:   req.CampaignID,
		Dispositions: map[string]int{},
		Responses:    map[string]map[string]map[string]int{},
	}
	for _, r := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += r.Call.DurationSeconds
		if r.Attempt.AnsweredAt != nil {
			out.AnsweredCalls++
		}
		if r.Attempt.Disposition.IsVoicemail() {
			out.VoicemailCalls++
		}

		d := string(r.Attempt.Disposition)
		if d == "" {
			d = "none"
		}
		out.Dispositions[d]++

		for page, entries := range r.Attempt.Result {
			for key, v := range entries {
				tallyAnswer(out.Responses, page, key, answerLabel(v))
			}
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}

func (s *Service) SpendSummary(ctx context.Context, req SpendSummaryRequest) (SpendSummary, error) {
	if req.WorkspaceID == "" || !req.Range.valid() {
		return SpendSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return SpendSummary{}, errors.New("reporting: repository not configured")
	}

	txs, err := s.repo.ListTransactions(ctx, req.WorkspaceID, req.Range.From, req.Range.To)
	if err != nil {
		return SpendSummary{}, err
	}

	out := SpendSummary{WorkspaceID: req.WorkspaceID}
	for _, t := range txs {
		if t.Amount > 0 {
			out.TotalCredits += t.Amount
			continue
		}
		out.TotalDebits += -t.Amount
		if strings.HasPrefix(t.IdempotencyKey, CallDebitPrefix) {
			out.CallDebits += -t.Amount
			out.CallsBilled++
		}
	}
	out.NetDelta = out.TotalCredits - out.TotalDebits
	return out, nil
}

func tallyAnswer(m map[string]map[string]map[string]int, page, key, label string) {
	byKey, ok := m[page]
	if !ok {
		byKey = map[string]map[string]int{}
		m[page] = byKey
	}
	counts, ok := byKey[key]
	if !ok {
		counts = map[string]int{}
		byKey[key] = counts
	}
	counts[label]++
}

func answerLabel(v any) string {
	switch a := v.(type) {
	case string:
		return a
	case calls.RecordingAnswer, *calls.RecordingAnswer, map[string]any:
		return RecordedAnswer
	case nil:
		return ""
	default:
		return fmt.Sprint(a)
	}
}
