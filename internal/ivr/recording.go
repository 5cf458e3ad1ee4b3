package ivr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ivr-platform/internal/calls"
	"ivr-platform/internal/script"
	"ivr-platform/internal/telephony"
	"ivr-platform/pkg/logger"
	"ivr-platform/pkg/utils"
)

// HandleRecording processes a finished recording and always redirects back to
// the flow. A status-only callback without a URL touches nothing.
//
// Once the step is known the attempt always moves past the speech block. If
// the audio cannot be fetched or stored the answer is kept with a null
// recordingUrl and the call continues.
func (e *Engine) HandleRecording(ctx context.Context, f telephony.RecordingForm) (telephony.Response, error) {
	if !f.HasRecording() {
		return e.redirectToFlow(), nil
	}

	b, err := e.loader.Load(ctx, f.CallSid)
	if err != nil {
		return telephony.Response{}, err
	}

	if err := e.advanceRecording(ctx, b, strings.TrimSpace(f.RecordingUrl)); err != nil {
		logger.From(ctx).Error("recording processing failed",
			slog.String("recording_url", f.RecordingUrl), slog.Any("err", err))
	}
	return e.redirectToFlow(), nil
}

func (e *Engine) advanceRecording(ctx context.Context, b calls.Bundle, recordingURL string) error {
	if b.Script == nil {
		return fmt.Errorf("%w: campaign %s has no script", script.ErrMalformedScript, b.Campaign.ID)
	}
	step, err := b.Attempt.Step(b.Script)
	if err != nil {
		return err
	}
	page, block, err := b.Script.Resolve(step)
	if err != nil {
		return err
	}
	next, err := b.Script.Fallthrough(page.ID, block.ID)
	if err != nil {
		return err
	}

	answer := calls.RecordingAnswer{}
	key := RecordingKey(b.Attempt.ID, step)
	signed, err := e.storeRecording(ctx, b, key, recordingURL)
	if err != nil {
		logger.From(ctx).Error("recording not stored", slog.String("key", key), slog.Any("err", err))
	} else {
		answer.RecordingURL = &signed
	}

	entry := &calls.ResultEntry{Page: page.ID, Key: "Response", Value: answer}
	if err := e.calls.RecordProgress(ctx, b.Attempt.ID, entry, next); err != nil {
		return fmt.Errorf("ivr: record recording: %w", err)
	}
	logger.From(ctx).Info("recording step done", slog.String("key", key),
		slog.Bool("stored", answer.RecordingURL != nil), slog.String("next", next.String()))
	return nil
}

// storeRecording downloads the provider recording, uploads it under key and
// returns a signed URL for it.
func (e *Engine) storeRecording(ctx context.Context, b calls.Bundle, key, recordingURL string) (string, error) {
	creds, err := e.Credentials(ctx, b.Call.WorkspaceID)
	if err != nil {
		return "", err
	}

	var rec telephony.Recording
	res := utils.Retry(ctx, utils.RetryPolicy{
		MaxAttempts: e.opts.RecordingAttempts,
		Backoff:     utils.ExponentialBackoff(e.opts.RecordingBackoff),
	}, func(ctx context.Context) error {
		r, err := e.provider.DownloadRecording(ctx, creds, recordingURL)
		if err != nil {
			logger.From(ctx).Warn("recording download failed", slog.Any("err", err))
			return err
		}
		rec = r
		return nil
	})
	if !res.OK() {
		return "", fmt.Errorf("ivr: download recording after %d attempts: %w", res.Attempts, res.Err)
	}

	if err := e.store.Put(ctx, key, "audio/wav", rec.Body); err != nil {
		return "", err
	}
	return e.store.SignedURL(ctx, key, e.opts.RecordingURLTTL)
}

// RecordingKey is the storage key for the recording captured at step.
func RecordingKey(attemptID string, step script.StepID) string {
	return RecordingKeyPrefix + attemptID + "-" + strings.ReplaceAll(step.String(), ":", "_") + ".wav"
}
