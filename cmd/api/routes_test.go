package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"ivr-platform/internal/auth"
	"ivr-platform/internal/calls"
	"ivr-platform/internal/config"
	"ivr-platform/internal/ivr"
	"ivr-platform/internal/rbac"
	"ivr-platform/internal/script"
	"ivr-platform/internal/storage"
	"ivr-platform/internal/telephony"
	"ivr-platform/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://ivr.example.com"

const goodbyeScript = `{
  "pages": {"page_1": {"title": "Intro", "blocks": ["block_1"]}},
  "blocks": {"block_1": {"type": "synthetic", "title": "Bye", "audioFile": "Goodbye", "options": []}}
}`

func newRouter(t *testing.T) (*gin.Engine, *auth.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := script.Parse([]byte(goodbyeScript))
	require.NoError(t, err)

	repo := calls.NewMemoryRepo()
	repo.PutWorkspace(calls.Workspace{ID: "ws1", TwilioAccountSID: "AC1", TwilioAuthToken: "ws-token"})
	repo.Put(calls.Bundle{
		Call:     calls.Call{SID: "CA1", WorkspaceID: "ws1", CampaignID: "cmp1", OutreachAttemptID: "att1"},
		Attempt:  calls.OutreachAttempt{ID: "att1", WorkspaceID: "ws1", CampaignID: "cmp1", CurrentStep: "hangup"},
		Campaign: calls.Campaign{ID: "cmp1", WorkspaceID: "ws1", Type: "robocall", IsActive: true},
		Script:   s,
	})
	ledger := wallet.NewMemoryLedger()
	ledger.SetCredits("ws1", 5)

	engine, err := ivr.NewEngine(ivr.Deps{
		Calls:    repo,
		Loader:   calls.NewLoader(repo, 1, 0),
		Store:    storage.NewMemoryStore(),
		Provider: telephony.NewTwilioClient(time.Second),
		Ledger:   ledger,
	}, ivr.Options{PublicBaseURL: testBaseURL})
	require.NoError(t, err)

	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret"})
	require.NoError(t, err)

	r := gin.New()
	registerRoutes(r, deps{
		ivr:    ivr.Handlers{Engine: engine},
		guard:  telephony.SignatureGuard{PublicBaseURL: testBaseURL, Resolve: engine.WebhookSecret},
		authMW: auth.RequireAccessToken(m),
		calls:  repo,
		wallet: ledger,
	})
	return r, m
}

func TestHealthz(t *testing.T) {
	r, _ := newRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestFlowWebhook_RequiresSignature(t *testing.T) {
	r, _ := newRouter(t)
	form := url.Values{"CallSid": {"CA1"}, "AccountSid": {"AC1"}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ivr/flow", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/ivr/flow", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(telephony.SignatureHeader, telephony.ComputeSignature("ws-token", testBaseURL+"/ivr/flow", form))
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "<Hangup")
}

func TestOperatorAPI_RequiresToken(t *testing.T) {
	r, m := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/credits", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok, err := m.Issue(time.Now(), auth.Identity{UserID: "u1", WorkspaceID: "ws1", Role: rbac.RoleOwner})
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/calls/CA1", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"current_step":"hangup"`)
}
