package telephony

import (
	"context"
	"errors"
)

// Credentials authenticate calls back into the provider on behalf of a
// workspace.
type Credentials struct {
	AccountSID string
	AuthToken  string
}

func (c Credentials) Valid() bool { return c.AccountSID != "" && c.AuthToken != "" }

var ErrMissingCredentials = errors.New("telephony: missing provider credentials")

// Recording is downloaded recording audio.
type Recording struct {
	Body        []byte
	ContentType string
}

// ProviderClient is the outbound provider port used by the IVR engine.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - Credentials are always passed explicitly (per workspace).
type ProviderClient interface {
	// CancelCall stops a call that has not been answered yet.
	CancelCall(ctx context.Context, creds Credentials, callSID string) error
	// DownloadRecording fetches recording audio from a provider URL.
	DownloadRecording(ctx context.Context, creds Credentials, recordingURL string) (Recording, error)
}
