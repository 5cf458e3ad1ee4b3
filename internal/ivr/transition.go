package ivr

import (
	"context"
	"fmt"
	"log/slog"

	"ivr-platform/internal/calls"
	"ivr-platform/internal/script"
	"ivr-platform/internal/telephony"
	"ivr-platform/pkg/logger"
)

// HandleFlow advances the call one step and returns the next directives.
//
// Order: answering machine, then a recording delivered to the flow URL, then
// caller input for the current block, then the current block itself.
func (e *Engine) HandleFlow(ctx context.Context, f telephony.FlowForm) (telephony.Response, error) {
	if f.RecordingUrl != "" {
		return e.HandleRecording(ctx, f.Recording())
	}

	b, err := e.loader.Load(ctx, f.CallSid)
	if err != nil {
		return telephony.Response{}, err
	}
	if f.IsMachine() {
		return e.handleMachine(ctx, b)
	}
	if b.Script == nil {
		return telephony.Response{}, fmt.Errorf("%w: campaign %s has no script", script.ErrMalformedScript, b.Campaign.ID)
	}

	step, err := b.Attempt.Step(b.Script)
	if err != nil {
		return telephony.Response{}, err
	}
	if step.IsHangup() {
		return hangup(), nil
	}
	page, block, err := b.Script.Resolve(step)
	if err != nil {
		return telephony.Response{}, err
	}

	input := f.Input()
	if input == "" {
		return e.handleOptions(ctx, b, page, block)
	}

	next, err := b.Script.Next(page.ID, block, input)
	if err != nil {
		return telephony.Response{}, err
	}
	entry := &calls.ResultEntry{Page: page.ID, Key: block.Title, Value: input}
	if err := e.calls.RecordProgress(ctx, b.Attempt.ID, entry, next); err != nil {
		return telephony.Response{}, fmt.Errorf("ivr: record input: %w", err)
	}
	logger.From(ctx).Debug("ivr input recorded",
		slog.String("step", step.String()), slog.String("next", next.String()))

	if next.IsHangup() {
		return hangup(), nil
	}
	b.Attempt.CurrentStep = next.String()
	nextPage, nextBlock, err := b.Script.Resolve(next)
	if err != nil {
		return telephony.Response{}, err
	}
	return e.handleOptions(ctx, b, nextPage, nextBlock)
}

// handleOptions emits the directives for block:
//   - speech: prompt then <Record> posting to the recording URL
//   - options: prompt nested in <Gather> posting to the flow URL
//   - otherwise: prompt, persist the fallthrough step, redirect to flow
func (e *Engine) handleOptions(ctx context.Context, b calls.Bundle, page script.Page, block script.Block) (telephony.Response, error) {
	prompt, err := e.audio.Block(ctx, block, b.Call.WorkspaceID)
	if err != nil {
		return telephony.Response{}, err
	}

	var r telephony.Response
	switch {
	case block.ResponseType == script.ResponseSpeech:
		r.Add(prompt, telephony.Record{
			Action:    e.urls.Recording(),
			MaxLength: RecordMaxLength,
			Timeout:   RecordTimeout,
		})
		return r, nil

	case len(block.Options) > 0:
		r.Add(telephony.Gather{
			Input:   gatherInput(block.ResponseType),
			Timeout: GatherTimeout,
			Action:  e.urls.Flow(),
			Prompt:  prompt,
		})
		return r, nil

	default:
		next, err := b.Script.Next(page.ID, block, "")
		if err != nil {
			return telephony.Response{}, err
		}
		if err := e.calls.RecordProgress(ctx, b.Attempt.ID, nil, next); err != nil {
			return telephony.Response{}, fmt.Errorf("ivr: advance static block: %w", err)
		}
		r.Add(prompt, telephony.Redirect{URL: e.urls.Flow()})
		return r, nil
	}
}

func gatherInput(rt script.ResponseType) string {
	if rt == script.ResponseDTMFSpeech {
		return string(script.ResponseDTMFSpeech)
	}
	return string(script.ResponseDTMF)
}

func hangup() telephony.Response {
	return telephony.Response{Verbs: []telephony.Verb{telephony.Hangup{}}}
}
