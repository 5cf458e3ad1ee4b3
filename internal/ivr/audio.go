package ivr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ivr-platform/internal/calls"
	"ivr-platform/internal/script"
	"ivr-platform/internal/storage"
	"ivr-platform/internal/telephony"
)

const DefaultAudioURLTTL = time.Hour

// AudioResolver turns block and voicemail audio references into playable verbs.
type AudioResolver struct {
	store storage.Store
	ttl   time.Duration
}

func NewAudioResolver(store storage.Store, ttl time.Duration) *AudioResolver {
	if ttl <= 0 {
		ttl = DefaultAudioURLTTL
	}
	return &AudioResolver{store: store, ttl: ttl}
}

// Block resolves a block prompt. Recorded audio is signed from
// "<workspace>/<audioFile>"; any other type is spoken as text. Storage errors
// are returned as is: the call cannot continue without its prompt.
func (r *AudioResolver) Block(ctx context.Context, b script.Block, workspaceID string) (telephony.Verb, error) {
	if b.Type != script.BlockRecorded {
		return telephony.Say{Text: b.AudioFile}, nil
	}
	u, err := r.sign(ctx, workspaceID, b.AudioFile)
	if err != nil {
		return nil, fmt.Errorf("ivr: audio for block %q: %w", b.ID, err)
	}
	return telephony.Play{URL: u}, nil
}

// Voicemail resolves the campaign voicemail message. nil means the campaign
// has none and no message should be left.
func (r *AudioResolver) Voicemail(ctx context.Context, c calls.Campaign) (telephony.Verb, error) {
	if strings.TrimSpace(c.VoicemailFile) == "" {
		return nil, nil
	}
	u, err := r.sign(ctx, c.WorkspaceID, c.VoicemailFile)
	if err != nil {
		return nil, fmt.Errorf("ivr: voicemail for campaign %s: %w", c.ID, err)
	}
	return telephony.Play{URL: u}, nil
}

func (r *AudioResolver) sign(ctx context.Context, workspaceID, file string) (string, error) {
	if strings.TrimSpace(file) == "" {
		return "", fmt.Errorf("%w: recorded audio without a file", script.ErrMalformedScript)
	}
	return r.store.SignedURL(ctx, AudioKey(workspaceID, file), r.ttl)
}

// AudioKey is the storage key of a workspace audio file.
func AudioKey(workspaceID, file string) string {
	return workspaceID + "/" + strings.TrimLeft(file, "/")
}
