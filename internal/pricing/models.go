package pricing

// Credit pricing is per campaign type. Amounts are whole workspace credits.

type CampaignType string

const (
	CampaignTypeIVR   CampaignType = "robocall"
	CampaignTypeVoice CampaignType = "live_call"
)

// Rate is a flat per-attempt charge plus a per-minute charge for every whole
// minute of connected time.
type Rate struct {
	PerAttempt int64 `json:"per_attempt"`
	PerMinute  int64 `json:"per_minute"`
}

// DefaultRates are the platform credit rates.
var DefaultRates = map[CampaignType]Rate{
	CampaignTypeIVR:   {PerAttempt: 1, PerMinute: 1},
	CampaignTypeVoice: {PerAttempt: 2, PerMinute: 2},
}
