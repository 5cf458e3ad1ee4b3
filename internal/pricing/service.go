package pricing

import (
	"errors"
	"strings"
)

// Service rates call usage in credits.
//
// Contract:
// - Pure calculation; no persistence and no provider calls.
// - Unknown campaign types are rated as IVR.
type Service struct {
	rates map[CampaignType]Rate
}

func NewService(rates map[CampaignType]Rate) *Service {
	if len(rates) == 0 {
		rates = DefaultRates
	}
	return &Service{rates: rates}
}

var ErrInvalidPricingReq = errors.New("pricing: invalid pricing request")

// CallCost is the credit charge for one call.
type CallCost struct {
	CampaignType    CampaignType `json:"campaign_type"`
	DurationSeconds int          `json:"duration_seconds"`
	WholeMinutes    int          `json:"whole_minutes"`
	Credits         int64        `json:"credits"`
}

// CallCredits rates a finished call of durationSeconds.
// IVR: floor(d/60) + 1. Voice: 2 + 2*floor(d/60).
func (s *Service) CallCredits(campaignType string, durationSeconds int) (CallCost, error) {
	if durationSeconds < 0 {
		return CallCost{}, ErrInvalidPricingReq
	}
	ct := normalizeType(campaignType)
	rate, ok := s.rates[ct]
	if !ok {
		ct = CampaignTypeIVR
		rate = s.rates[ct]
	}

	minutes := wholeMinutes(durationSeconds)
	return CallCost{
		CampaignType:    ct,
		DurationSeconds: durationSeconds,
		WholeMinutes:    minutes,
		Credits:         rate.PerAttempt + rate.PerMinute*int64(minutes),
	}, nil
}

// IVRCallCredits is the debit applied when an IVR call completes.
func IVRCallCredits(durationSeconds int) int64 {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	r := DefaultRates[CampaignTypeIVR]
	return r.PerAttempt + r.PerMinute*int64(wholeMinutes(durationSeconds))
}

func normalizeType(s string) CampaignType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "live_call", "voice", "call":
		return CampaignTypeVoice
	default:
		return CampaignType(strings.ToLower(strings.TrimSpace(s)))
	}
}

func wholeMinutes(sec int) int {
	if sec <= 0 {
		return 0
	}
	return sec / 60
}
