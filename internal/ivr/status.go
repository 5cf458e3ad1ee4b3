package ivr

import (
	"context"
	"fmt"
	"log/slog"

	"ivr-platform/internal/audit"
	"ivr-platform/internal/calls"
	"ivr-platform/internal/telephony"
	"ivr-platform/internal/wallet"
	"ivr-platform/pkg/logger"
)

// HandleStatus applies a call lifecycle event.
//
// Every event updates the call row and the set-once attempt timestamps.
// "initiated" runs the credit and campaign gates; a rejection comes back as a
// *GateError after the call has been canceled. Terminal events finalize the
// disposition and debit credits once per call.
func (e *Engine) HandleStatus(ctx context.Context, f telephony.StatusForm) (telephony.Response, error) {
	status := calls.CallStatus(f.Status())
	log := logger.From(ctx).With(slog.String("call_status", string(status)))

	duration, err := f.Duration()
	if err != nil {
		log.Warn("ignoring call duration", slog.Any("err", err))
		duration = nil
	}

	var replayKey string
	if status.IsTerminal() && e.marker != nil {
		replayKey = "status:" + f.CallSid + ":" + string(status)
		first, err := e.marker.MarkOnce(ctx, replayKey, e.opts.ReplayTTL)
		switch {
		case err != nil:
			log.Warn("replay marker unavailable", slog.Any("err", err))
			replayKey = ""
		case !first:
			log.Info("duplicate terminal status ignored")
			return e.redirectToFlow(), nil
		}
	}

	resp, err := e.applyStatus(ctx, f.CallSid, status, duration)
	if err != nil && replayKey != "" {
		if cerr := e.marker.Clear(ctx, replayKey); cerr != nil {
			log.Warn("replay marker clear failed", slog.Any("err", cerr))
		}
	}
	return resp, err
}

func (e *Engine) applyStatus(ctx context.Context, callSID string, status calls.CallStatus, duration *int) (telephony.Response, error) {
	b, err := e.loader.Load(ctx, callSID)
	if err != nil {
		return telephony.Response{}, err
	}

	at := e.now().UTC()
	if err := e.calls.UpdateCallStatus(ctx, callSID, calls.StatusUpdate{Status: status, DurationSeconds: duration, At: at}); err != nil {
		return telephony.Response{}, fmt.Errorf("ivr: update call status: %w", err)
	}
	if status.IsAnswered() {
		if err := e.calls.MarkAnswered(ctx, b.Attempt.ID, at); err != nil {
			return telephony.Response{}, fmt.Errorf("ivr: mark answered: %w", err)
		}
	}
	if status.IsTerminal() {
		if err := e.calls.MarkEnded(ctx, b.Attempt.ID, at); err != nil {
			return telephony.Response{}, fmt.Errorf("ivr: mark ended: %w", err)
		}
	}

	switch {
	case status == calls.CallStatusInitiated:
		if err := e.gate(ctx, b); err != nil {
			return telephony.Response{}, err
		}
	case status.IsTerminal():
		if err := e.finalize(ctx, b, status, duration); err != nil {
			return telephony.Response{}, err
		}
	}
	return e.redirectToFlow(), nil
}

// gate cancels an initiating call when the workspace is out of credits or the
// campaign is paused. Running out of credits also deactivates the campaign.
func (e *Engine) gate(ctx context.Context, b calls.Bundle) error {
	bal, err := e.ledger.Balance(ctx, b.Call.WorkspaceID)
	if err != nil {
		return fmt.Errorf("ivr: credit balance: %w", err)
	}

	var reason, msg string
	switch {
	case bal.Credits <= 0:
		reason, msg = audit.ReasonInsufficientCredits, "Insufficient credits"
	case !b.Campaign.IsActive:
		reason, msg = audit.ReasonCampaignInactive, "Campaign is not active"
	default:
		return nil
	}

	// The call is canceled before anything else can fail.
	e.cancel(ctx, b)
	e.auditErr(ctx, e.auditor().LogCallCanceled(ctx, b.Call.WorkspaceID, b.Campaign.ID, b.Call.SID, reason))

	if reason == audit.ReasonInsufficientCredits {
		if err := e.calls.DeactivateCampaign(ctx, b.Campaign.ID); err != nil {
			logger.From(ctx).Error("deactivate campaign failed", slog.String("campaign_id", b.Campaign.ID), slog.Any("err", err))
		} else {
			e.auditErr(ctx, e.auditor().LogCampaignDeactivated(ctx, b.Call.WorkspaceID, b.Campaign.ID, b.Call.SID, reason))
		}
	}

	logger.From(ctx).Info("call rejected at initiation",
		slog.String("reason", reason), slog.Int64("credits", bal.Credits), slog.String("campaign_id", b.Campaign.ID))
	return &GateError{Reason: reason, Message: msg, CallSID: b.Call.SID}
}

func (e *Engine) cancel(ctx context.Context, b calls.Bundle) {
	creds, err := e.Credentials(ctx, b.Call.WorkspaceID)
	if err == nil {
		err = e.provider.CancelCall(ctx, creds, b.Call.SID)
	}
	if err != nil {
		logger.From(ctx).Error("cancel call failed", slog.Any("err", err))
	}
}

// finalize sets the disposition from the terminal status, keeping any
// voicemail disposition, and debits credits when a duration was reported.
func (e *Engine) finalize(ctx context.Context, b calls.Bundle, status calls.CallStatus, duration *int) error {
	if !b.Attempt.Disposition.IsVoicemail() {
		if err := e.calls.SetDisposition(ctx, b.Attempt.ID, calls.DispositionForStatus(status)); err != nil {
			return fmt.Errorf("ivr: set disposition: %w", err)
		}
	}
	if duration == nil {
		return nil
	}

	cost, err := e.pricing.CallCredits(b.Campaign.Type, *duration)
	if err != nil {
		return err
	}
	res, err := e.ledger.Debit(ctx, b.Call.WorkspaceID, wallet.DebitRequest{
		Amount:         cost.Credits,
		Note:           fmt.Sprintf("Call %s (%s)", b.Call.SID, b.Campaign.Name),
		IdempotencyKey: DebitKey(b.Call.SID),
	})
	if err != nil {
		return fmt.Errorf("ivr: debit credits: %w", err)
	}
	if res.Duplicate {
		logger.From(ctx).Info("call already debited", slog.String("transaction_id", res.Transaction.ID))
		return nil
	}
	e.auditErr(ctx, e.auditor().LogCallDebited(ctx, b.Call.WorkspaceID, b.Campaign.ID, b.Call.SID, cost.Credits))
	logger.From(ctx).Info("call debited",
		slog.Int64("credits", cost.Credits), slog.Int("duration", *duration), slog.Int64("balance", res.Balance.Credits))
	return nil
}

// DebitKey is the ledger idempotency key for a call's completion charge.
func DebitKey(callSID string) string { return "call:" + callSID }

func (e *Engine) auditor() AuditLogger {
	if e.audit == nil {
		return noopAudit{}
	}
	return e.audit
}

func (e *Engine) auditErr(ctx context.Context, err error) {
	if err != nil {
		logger.From(ctx).Warn("audit append failed", slog.Any("err", err))
	}
}

type noopAudit struct{}

func (noopAudit) LogCallCanceled(context.Context, string, string, string, string) error { return nil }
func (noopAudit) LogCampaignDeactivated(context.Context, string, string, string, string) error {
	return nil
}
func (noopAudit) LogCallDebited(context.Context, string, string, string, int64) error { return nil }
