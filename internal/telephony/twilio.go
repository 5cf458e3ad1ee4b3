package telephony

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nyaruka/gocommon/httpx"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// CallUpdater is the slice of the Twilio REST API used here.
type CallUpdater interface {
	UpdateCall(sid string, params *api.UpdateCallParams) (*api.ApiV2010Call, error)
}

// TwilioClient implements ProviderClient on the Twilio REST API.
type TwilioClient struct {
	HTTP *http.Client

	// NewCallUpdater builds a REST client for creds. Defaults to twilio-go.
	NewCallUpdater func(creds Credentials) CallUpdater

	// MaxRecordingBytes bounds a single download.
	MaxRecordingBytes int64
}

func NewTwilioClient(timeout time.Duration) *TwilioClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TwilioClient{
		HTTP:              &http.Client{Timeout: timeout},
		MaxRecordingBytes: 50 << 20,
	}
}

func (t *TwilioClient) updater(creds Credentials) CallUpdater {
	if t.NewCallUpdater != nil {
		return t.NewCallUpdater(creds)
	}
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: creds.AccountSID,
		Password: creds.AuthToken,
	})
	return rest.Api
}

func (t *TwilioClient) CancelCall(ctx context.Context, creds Credentials, callSID string) error {
	if !creds.Valid() {
		return ErrMissingCredentials
	}
	// twilio-go REST calls take no context, so only an already finished ctx
	// can stop the update.
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &api.UpdateCallParams{}
	params.SetStatus("canceled")
	if _, err := t.updater(creds).UpdateCall(callSID, params); err != nil {
		return fmt.Errorf("telephony: cancel call %s: %w", callSID, err)
	}
	return nil
}

// DownloadRecording fetches the recording as WAV. Non-2xx responses are errors
// so callers can retry them.
func (t *TwilioClient) DownloadRecording(ctx context.Context, creds Credentials, recordingURL string) (Recording, error) {
	if !creds.Valid() {
		return Recording{}, ErrMissingCredentials
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL, nil)
	if err != nil {
		return Recording{}, fmt.Errorf("telephony: recording request: %w", err)
	}
	req.SetBasicAuth(creds.AccountSID, creds.AuthToken)
	req.Header.Set("Accept", "audio/wav")

	client := t.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	limit := t.MaxRecordingBytes
	if limit <= 0 {
		limit = 50 << 20
	}

	// Retries are left to the caller, which owns the backoff policy.
	trace, err := httpx.DoTrace(client, req, nil, nil, int(limit)+1)
	if err != nil {
		return Recording{}, fmt.Errorf("telephony: download recording: %w", err)
	}
	resp := trace.Response
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Recording{}, fmt.Errorf("telephony: download recording: unexpected status %d", resp.StatusCode)
	}
	body := trace.ResponseBody
	if int64(len(body)) > limit {
		return Recording{}, fmt.Errorf("telephony: recording exceeds %d bytes", limit)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" || strings.HasPrefix(ct, "application/octet-stream") {
		ct = "audio/wav"
	}
	return Recording{Body: body, ContentType: ct}, nil
}
