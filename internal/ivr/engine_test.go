package ivr

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ivr-platform/internal/audit"
	"ivr-platform/internal/calls"
	"ivr-platform/internal/script"
	"ivr-platform/internal/storage"
	"ivr-platform/internal/telephony"
	"ivr-platform/internal/wallet"

	"github.com/stretchr/testify/require"
)

const (
	baseURL      = "https://ivr.example.com"
	flowURL      = baseURL + "/ivr/flow"
	recordingURL = baseURL + "/ivr/recording"
)

const surveyScript = `{
  "pages": {
    "page_1": {"title": "Intro", "blocks": ["block_1", "block_2", "block_3"]},
    "page_2": {"title": "Feedback", "blocks": ["block_4"]}
  },
  "blocks": {
    "block_1": {"type": "synthetic", "title": "Welcome", "audioFile": "Hi there", "options": []},
    "block_2": {"type": "recorded", "title": "Menu", "audioFile": "menu.mp3", "responseType": "dtmf speech",
      "options": [{"value": "1", "next": "page_2:block_4"}, {"value": "vx-any", "next": "page_1:block_3"}]},
    "block_3": {"type": "synthetic", "title": "Other", "audioFile": "Thanks", "options": [{"value": "9", "next": "hangup"}]},
    "block_4": {"type": "synthetic", "title": "Comments", "audioFile": "Tell us more", "responseType": "speech", "options": []}
  }
}`

type fakeProvider struct {
	mu        sync.Mutex
	canceled  []string
	cancelErr error
	downloads int
	failFirst int
	body      []byte
	creds     telephony.Credentials
}

func (p *fakeProvider) CancelCall(ctx context.Context, creds telephony.Credentials, callSID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creds = creds
	p.canceled = append(p.canceled, callSID)
	return p.cancelErr
}

func (p *fakeProvider) DownloadRecording(ctx context.Context, creds telephony.Credentials, url string) (telephony.Recording, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.downloads++
	if p.downloads <= p.failFirst {
		return telephony.Recording{}, errors.New("provider unavailable")
	}
	return telephony.Recording{Body: p.body, ContentType: "audio/wav"}, nil
}

type memMarker struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memMarker) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memMarker) Clear(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type testEnv struct {
	engine   *Engine
	repo     *calls.MemoryRepo
	store    *storage.MemoryStore
	ledger   *wallet.MemoryLedger
	provider *fakeProvider
	audits   *audit.MemoryRepo
	marker   *memMarker
	now      time.Time
}

type envOption func(*calls.Bundle)

func withScript(doc string) envOption {
	return func(b *calls.Bundle) {
		s, err := script.Parse([]byte(doc))
		if err != nil {
			panic(err)
		}
		b.Script = s
	}
}

func withStep(step string) envOption {
	return func(b *calls.Bundle) { b.Attempt.CurrentStep = step }
}

func withVoicemail(file string) envOption {
	return func(b *calls.Bundle) { b.Campaign.VoicemailFile = file }
}

func withDisposition(d calls.Disposition) envOption {
	return func(b *calls.Bundle) { b.Attempt.Disposition = d }
}

func withInactiveCampaign() envOption {
	return func(b *calls.Bundle) { b.Campaign.IsActive = false }
}

func newEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	env := &testEnv{
		repo:     calls.NewMemoryRepo(),
		store:    storage.NewMemoryStore(),
		ledger:   wallet.NewMemoryLedger(),
		provider: &fakeProvider{body: []byte("RIFF")},
		audits:   audit.NewMemoryRepo(),
		marker:   &memMarker{keys: map[string]bool{}},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	b := calls.Bundle{
		Call:     calls.Call{SID: "CA1", WorkspaceID: "ws1", CampaignID: "cmp1", OutreachAttemptID: "att1", Status: calls.CallStatusQueued},
		Attempt:  calls.OutreachAttempt{ID: "att1", WorkspaceID: "ws1", CampaignID: "cmp1", Result: calls.Result{}},
		Campaign: calls.Campaign{ID: "cmp1", WorkspaceID: "ws1", Name: "Spring survey", Type: "robocall", IsActive: true},
	}
	withScript(surveyScript)(&b)
	for _, o := range opts {
		o(&b)
	}
	env.repo.Put(b)
	env.repo.PutWorkspace(calls.Workspace{ID: "ws1", Name: "Acme", Credits: 10, TwilioAccountSID: "AC1", TwilioAuthToken: "ws-token"})
	env.ledger.SetCredits("ws1", 10)

	e, err := NewEngine(Deps{
		Calls:    env.repo,
		Loader:   calls.NewLoader(env.repo, 2, 0),
		Store:    env.store,
		Provider: env.provider,
		Ledger:   env.ledger,
		Audit:    audit.NewService(env.audits),
		Marker:   env.marker,
		Now:      func() time.Time { return env.now },
	}, Options{
		PublicBaseURL:      baseURL + "/",
		RecordingBackoff:   time.Millisecond,
		DefaultCredentials: telephony.Credentials{AccountSID: "ACdefault", AuthToken: "default-token"},
	})
	require.NoError(t, err)
	env.engine = e
	return env
}

func (env *testEnv) attempt(t *testing.T) calls.OutreachAttempt {
	t.Helper()
	a, ok := env.repo.Attempt("att1")
	require.True(t, ok)
	return a
}

func TestNewEngineValidates(t *testing.T) {
	_, err := NewEngine(Deps{}, Options{PublicBaseURL: baseURL})
	require.Error(t, err)

	_, err = NewEngine(Deps{
		Calls:    calls.NewMemoryRepo(),
		Store:    storage.NewMemoryStore(),
		Provider: &fakeProvider{},
		Ledger:   wallet.NewMemoryLedger(),
	}, Options{PublicBaseURL: "ivr.example.com"})
	require.Error(t, err)
}

func TestCallbackURLs(t *testing.T) {
	u, err := NewCallbackURLs("https://ivr.example.com/")
	require.NoError(t, err)
	require.Equal(t, flowURL, u.Flow())
	require.Equal(t, recordingURL, u.Recording())
	require.Equal(t, baseURL+"/ivr/status", u.Status())
}

func TestCredentialsFallback(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	c, err := env.engine.Credentials(ctx, "ws1")
	require.NoError(t, err)
	require.Equal(t, "AC1", c.AccountSID)

	c, err = env.engine.Credentials(ctx, "unknown")
	require.NoError(t, err)
	require.Equal(t, "ACdefault", c.AccountSID)

}

func TestWebhookSecretFollowsCallOwner(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.repo.PutWorkspace(calls.Workspace{ID: "ws2", Name: "Other", TwilioAccountSID: "AC2", TwilioAuthToken: "ws2-token"})

	secret, err := env.engine.WebhookSecret(ctx, "CA1", "AC1")
	require.NoError(t, err)
	require.Equal(t, "ws-token", secret)

	secret, err = env.engine.WebhookSecret(ctx, "CA1", "")
	require.NoError(t, err)
	require.Equal(t, "ws-token", secret)

	_, err = env.engine.WebhookSecret(ctx, "CA1", "AC2")
	require.ErrorIs(t, err, ErrAccountMismatch)

	_, err = env.engine.WebhookSecret(ctx, "CA404", "AC1")
	require.ErrorIs(t, err, calls.ErrCallNotFound)
}

func TestWebhookSecretDefaultCredentials(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.repo.PutWorkspace(calls.Workspace{ID: "ws1", Name: "Acme", Credits: 10})

	secret, err := env.engine.WebhookSecret(ctx, "CA1", "ACdefault")
	require.NoError(t, err)
	require.Equal(t, "default-token", secret)

	_, err = env.engine.WebhookSecret(ctx, "CA1", "AC1")
	require.ErrorIs(t, err, ErrAccountMismatch)
}

func TestRecordingKey(t *testing.T) {
	require.Equal(t, "recording-att1-page_2_block_4.wav", RecordingKey("att1", script.Step("page_2", "block_4")))
	require.Equal(t, "ws1/menu.mp3", AudioKey("ws1", "/menu.mp3"))
}

func TestGateErrorIs(t *testing.T) {
	var err error = &GateError{Reason: "x", CallSID: "CA1"}
	require.True(t, errors.Is(err, ErrGateRejected))
	require.Contains(t, err.Error(), "CA1")
}

func mustScript(t *testing.T, doc string) *script.Script {
	t.Helper()
	s, err := script.Parse([]byte(doc))
	require.NoError(t, err)
	return s
}
