// Package ivr is the IVR call-flow engine. Each webhook is a stateless
// transition over the persisted call and outreach attempt rows.
package ivr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ivr-platform/internal/calls"
	"ivr-platform/internal/pricing"
	"ivr-platform/internal/storage"
	"ivr-platform/internal/telephony"
	"ivr-platform/internal/wallet"
)

const (
	GatherTimeout      = 5
	RecordMaxLength    = 60
	RecordTimeout      = 5
	VoicemailPause     = 4
	RecordingKeyPrefix = "recording-"

	DefaultRecordingURLTTL   = 100 * 24 * time.Hour
	DefaultRecordingAttempts = 3
	DefaultRecordingBackoff  = time.Second
	DefaultReplayTTL         = 24 * time.Hour
)

// BundleLoader loads everything a webhook needs for a call.
type BundleLoader interface {
	Load(ctx context.Context, callSID string) (calls.Bundle, error)
	Owner(ctx context.Context, callSID string) (string, error)
}

// AuditLogger records gate and billing decisions. Failures are logged only.
type AuditLogger interface {
	LogCallCanceled(ctx context.Context, workspaceID, campaignID, callSID, reason string) error
	LogCampaignDeactivated(ctx context.Context, workspaceID, campaignID, callSID, reason string) error
	LogCallDebited(ctx context.Context, workspaceID, campaignID, callSID string, credits int64) error
}

// OnceMarker guards against replays of the same terminal status event.
type OnceMarker interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Clear(ctx context.Context, key string) error
}

// Deps are the engine's collaborators. Audit and Marker are optional.
type Deps struct {
	Calls    calls.Repository
	Loader   BundleLoader
	Store    storage.Store
	Provider telephony.ProviderClient
	Ledger   wallet.Ledger
	Pricing  *pricing.Service
	Audit    AuditLogger
	Marker   OnceMarker
	Now      func() time.Time
}

type Options struct {
	// PublicBaseURL is where the provider reaches this service.
	PublicBaseURL string

	AudioURLTTL     time.Duration
	RecordingURLTTL time.Duration

	RecordingAttempts int
	RecordingBackoff  time.Duration

	ReplayTTL time.Duration

	// DefaultCredentials are used for workspaces without their own.
	DefaultCredentials telephony.Credentials
}

type Engine struct {
	calls    calls.Repository
	loader   BundleLoader
	store    storage.Store
	audio    *AudioResolver
	provider telephony.ProviderClient
	ledger   wallet.Ledger
	pricing  *pricing.Service
	audit    AuditLogger
	marker   OnceMarker
	now      func() time.Time

	urls CallbackURLs
	opts Options
}

func NewEngine(d Deps, o Options) (*Engine, error) {
	switch {
	case d.Calls == nil:
		return nil, errors.New("ivr: calls repository required")
	case d.Store == nil:
		return nil, errors.New("ivr: storage required")
	case d.Provider == nil:
		return nil, errors.New("ivr: provider client required")
	case d.Ledger == nil:
		return nil, errors.New("ivr: credit ledger required")
	}
	urls, err := NewCallbackURLs(o.PublicBaseURL)
	if err != nil {
		return nil, err
	}

	if d.Loader == nil {
		d.Loader = calls.NewLoader(d.Calls, calls.DefaultLookupAttempts, calls.DefaultLookupDelay)
	}
	if d.Pricing == nil {
		d.Pricing = pricing.NewService(nil)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if o.RecordingURLTTL <= 0 {
		o.RecordingURLTTL = DefaultRecordingURLTTL
	}
	if o.RecordingAttempts <= 0 {
		o.RecordingAttempts = DefaultRecordingAttempts
	}
	if o.RecordingBackoff <= 0 {
		o.RecordingBackoff = DefaultRecordingBackoff
	}
	if o.ReplayTTL <= 0 {
		o.ReplayTTL = DefaultReplayTTL
	}

	return &Engine{
		calls:    d.Calls,
		loader:   d.Loader,
		store:    d.Store,
		audio:    NewAudioResolver(d.Store, o.AudioURLTTL),
		provider: d.Provider,
		ledger:   d.Ledger,
		pricing:  d.Pricing,
		audit:    d.Audit,
		marker:   d.Marker,
		now:      d.Now,
		urls:     urls,
		opts:     o,
	}, nil
}

// CallbackURLs are the absolute webhook URLs written into directives.
type CallbackURLs struct {
	base string
}

func NewCallbackURLs(base string) (CallbackURLs, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return CallbackURLs{}, fmt.Errorf("ivr: public base url must be absolute, got %q", base)
	}
	return CallbackURLs{base: base}, nil
}

func (u CallbackURLs) Flow() string      { return u.base + "/ivr/flow" }
func (u CallbackURLs) Recording() string { return u.base + "/ivr/recording" }
func (u CallbackURLs) Status() string    { return u.base + "/ivr/status" }

// Credentials returns the provider credentials for a workspace, falling back
// to the configured defaults.
func (e *Engine) Credentials(ctx context.Context, workspaceID string) (telephony.Credentials, error) {
	ws, err := e.calls.FindWorkspace(ctx, workspaceID)
	if err != nil && !errors.Is(err, calls.ErrNotFound) {
		return telephony.Credentials{}, err
	}
	if err == nil && ws.TwilioAccountSID != "" && ws.TwilioAuthToken != "" {
		return telephony.Credentials{AccountSID: ws.TwilioAccountSID, AuthToken: ws.TwilioAuthToken}, nil
	}
	if e.opts.DefaultCredentials.Valid() {
		return e.opts.DefaultCredentials, nil
	}
	return telephony.Credentials{}, fmt.Errorf("%w for workspace %s", telephony.ErrMissingCredentials, workspaceID)
}

// WebhookSecret resolves the auth token of the workspace that owns callSID.
// The secret never comes from the account the request claims: a stated
// AccountSid that differs from the owner's account is rejected.
func (e *Engine) WebhookSecret(ctx context.Context, callSID, accountSID string) (string, error) {
	workspaceID, err := e.loader.Owner(ctx, callSID)
	if err != nil {
		return "", err
	}
	creds, err := e.Credentials(ctx, workspaceID)
	if err != nil {
		return "", err
	}
	if accountSID != "" && creds.AccountSID != "" && accountSID != creds.AccountSID {
		return "", fmt.Errorf("%w: call %s belongs to workspace %s", ErrAccountMismatch, callSID, workspaceID)
	}
	return creds.AuthToken, nil
}

func (e *Engine) redirectToFlow() telephony.Response {
	return telephony.Response{Verbs: []telephony.Verb{telephony.Redirect{URL: e.urls.Flow()}}}
}
