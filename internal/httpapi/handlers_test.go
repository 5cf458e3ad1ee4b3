package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ivr-platform/internal/auth"
	"ivr-platform/internal/calls"
	"ivr-platform/internal/config"
	"ivr-platform/internal/rbac"
	"ivr-platform/internal/reporting"
	"ivr-platform/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiEnv struct {
	router *gin.Engine
	auth   *auth.Manager
	repo   *calls.MemoryRepo
	ledger *wallet.MemoryLedger
	report *reporting.MemoryRepo
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret"})
	require.NoError(t, err)

	repo := calls.NewMemoryRepo()
	repo.Put(calls.Bundle{
		Call: calls.Call{SID: "CA1", WorkspaceID: "ws-1", CampaignID: "cmp-1", OutreachAttemptID: "att-1", Status: calls.CallStatusInProgress},
		Attempt: calls.OutreachAttempt{
			ID:          "att-1",
			WorkspaceID: "ws-1",
			CampaignID:  "cmp-1",
			CurrentStep: "page_1:block_2",
			Result:      calls.Result{"page_1": {"Favourite": "1"}},
		},
		Campaign: calls.Campaign{ID: "cmp-1", WorkspaceID: "ws-1", Type: "robocall", IsActive: true},
	})

	ledger := wallet.NewMemoryLedger()
	ledger.SetCredits("ws-1", 42)

	report := reporting.NewMemoryRepo()

	r := gin.New()
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(m))
	Handlers{Calls: repo, Wallet: ledger, Reports: reporting.NewService(report)}.Register(v1)

	return &apiEnv{router: r, auth: m, repo: repo, ledger: ledger, report: report}
}

func (e *apiEnv) do(t *testing.T, method, path, workspace, role string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	tok, err := e.auth.Issue(time.Now(), auth.Identity{UserID: "op-1", WorkspaceID: workspace, Role: role})
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tok)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestGetCall(t *testing.T) {
	e := newAPI(t)

	w := e.do(t, http.MethodGet, "/v1/calls/CA1", "ws-1", rbac.RoleAnalyst, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "CA1", got["sid"])
	assert.Equal(t, "in-progress", got["status"])
	assert.Equal(t, "page_1:block_2", got["current_step"])
	assert.Equal(t, map[string]any{"page_1": map[string]any{"Favourite": "1"}}, got["result"])
}

func TestGetCall_OtherWorkspaceIsNotFound(t *testing.T) {
	e := newAPI(t)
	w := e.do(t, http.MethodGet, "/v1/calls/CA1", "ws-2", rbac.RoleOwner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetCall_Unknown(t *testing.T) {
	e := newAPI(t)
	w := e.do(t, http.MethodGet, "/v1/calls/CA404", "ws-1", rbac.RoleOwner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetCall_RoleForbidden(t *testing.T) {
	e := newAPI(t)
	w := e.do(t, http.MethodGet, "/v1/calls/CA1", "ws-1", rbac.RoleFinance, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetCredits(t *testing.T) {
	e := newAPI(t)
	w := e.do(t, http.MethodGet, "/v1/credits", "ws-1", rbac.RoleFinance, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var bal wallet.Balance
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bal))
	assert.Equal(t, wallet.Balance{WorkspaceID: "ws-1", Credits: 42}, bal)

	w = e.do(t, http.MethodGet, "/v1/credits", "ws-missing", rbac.RoleOwner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestManualCredit(t *testing.T) {
	e := newAPI(t)
	body := []byte(`{"amount":10,"idempotency_key":"topup-1"}`)

	w := e.do(t, http.MethodPost, "/v1/credits", "ws-1", rbac.RoleOwner, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/v1/credits", "ws-1", rbac.RoleSuperAdmin, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = e.do(t, http.MethodPost, "/v1/credits", "ws-1", rbac.RoleSuperAdmin, body)
	require.Equal(t, http.StatusOK, w.Code)

	var res wallet.PostResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Duplicate)

	bal, err := e.ledger.Balance(t.Context(), "ws-1")
	require.NoError(t, err)
	assert.EqualValues(t, 52, bal.Credits)
	require.Len(t, e.ledger.Transactions(), 1)
	assert.Equal(t, "manual:topup-1", e.ledger.Transactions()[0].IdempotencyKey)
}

func TestManualCredit_BadBody(t *testing.T) {
	e := newAPI(t)
	w := e.do(t, http.MethodPost, "/v1/credits", "ws-1", rbac.RoleSuperAdmin, []byte(`{"amount":-5}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCampaignReport(t *testing.T) {
	e := newAPI(t)
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e.report.Records = []reporting.CallRecord{{
		Call:    calls.Call{SID: "CA1", WorkspaceID: "ws-1", CampaignID: "cmp-1", DurationSeconds: 30, EndTime: &end},
		Attempt: calls.OutreachAttempt{ID: "att-1", Disposition: calls.DispositionCompleted, Result: calls.Result{"page_1": {"Menu": "1"}}},
	}}

	w := e.do(t, http.MethodGet, "/v1/reports/campaigns/cmp-1?from=2026-03-01T00:00:00Z&to=2026-03-02T00:00:00Z", "ws-1", rbac.RoleAnalyst, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out reporting.CampaignSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 1, out.TotalCalls)
	assert.Equal(t, 1, out.Responses["page_1"]["Menu"]["1"])

	w = e.do(t, http.MethodGet, "/v1/reports/campaigns/cmp-1?from=yesterday", "ws-1", rbac.RoleAnalyst, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSpendReport(t *testing.T) {
	e := newAPI(t)
	now := time.Now().UTC()
	e.report.Transactions = []wallet.Transaction{
		{ID: "t1", WorkspaceID: "ws-1", Amount: -3, IdempotencyKey: "call:CA1", CreatedAt: now.Add(-time.Minute)},
	}

	w := e.do(t, http.MethodGet, "/v1/reports/spend", "ws-1", rbac.RoleFinance, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out reporting.SpendSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.EqualValues(t, 3, out.CallDebits)
	assert.Equal(t, 1, out.CallsBilled)
}
