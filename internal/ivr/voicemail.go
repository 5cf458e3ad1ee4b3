package ivr

import (
	"context"
	"fmt"
	"log/slog"

	"ivr-platform/internal/calls"
	"ivr-platform/internal/telephony"
	"ivr-platform/pkg/logger"
)

// handleMachine answers a call picked up by an answering machine. The
// disposition set here is final; completion never overwrites it.
func (e *Engine) handleMachine(ctx context.Context, b calls.Bundle) (telephony.Response, error) {
	msg, err := e.audio.Voicemail(ctx, b.Campaign)
	if err != nil {
		return telephony.Response{}, err
	}

	if msg == nil {
		if err := e.calls.SetDisposition(ctx, b.Attempt.ID, calls.DispositionVoicemailNoMessage); err != nil {
			return telephony.Response{}, fmt.Errorf("ivr: set voicemail disposition: %w", err)
		}
		logger.From(ctx).Info("answering machine, no message", slog.String("campaign_id", b.Campaign.ID))
		return hangup(), nil
	}

	if err := e.calls.SetDisposition(ctx, b.Attempt.ID, calls.DispositionVoicemail); err != nil {
		return telephony.Response{}, fmt.Errorf("ivr: set voicemail disposition: %w", err)
	}
	logger.From(ctx).Info("answering machine, leaving message", slog.String("campaign_id", b.Campaign.ID))

	var r telephony.Response
	r.Add(telephony.Pause{Seconds: VoicemailPause}, msg)
	return r, nil
}
