package telephony

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/twilio/twilio-go/twiml"
)

// Verb is one provider call-control directive. The engine builds Responses
// from these and never touches provider markup directly.
type Verb interface {
	element() (twiml.Element, error)
}

type Say struct {
	Text string
}

type Play struct {
	URL string
}

type Pause struct {
	Seconds int
}

// Gather collects DTMF and/or speech while Prompt plays, then posts to Action.
type Gather struct {
	Input   string
	Timeout int
	Action  string
	Prompt  Verb
}

// Record captures free-form audio and posts the finished recording to Action.
type Record struct {
	Action    string
	MaxLength int
	Timeout   int
}

type Redirect struct {
	URL string
}

type Hangup struct{}

// Response is an ordered list of verbs.
type Response struct {
	Verbs []Verb
}

func (r *Response) Add(v ...Verb) *Response {
	r.Verbs = append(r.Verbs, v...)
	return r
}

const ApologyText = "An error occurred. Please try again later."

// Apology is the last-resort response returned when a webhook cannot continue.
func Apology() Response {
	return Response{Verbs: []Verb{Say{Text: ApologyText}, Hangup{}}}
}

// RenderTwiML encodes r as a TwiML document.
func RenderTwiML(r Response) (string, error) {
	elems := make([]twiml.Element, 0, len(r.Verbs))
	for i, v := range r.Verbs {
		if v == nil {
			return "", fmt.Errorf("telephony: verb %d is nil", i)
		}
		e, err := v.element()
		if err != nil {
			return "", err
		}
		elems = append(elems, e)
	}
	return twiml.Voice(elems)
}

func (v Say) element() (twiml.Element, error) {
	return &twiml.VoiceSay{Message: v.Text}, nil
}

func (v Play) element() (twiml.Element, error) {
	if v.URL == "" {
		return nil, errors.New("telephony: play requires a url")
	}
	return &twiml.VoicePlay{Url: v.URL}, nil
}

func (v Pause) element() (twiml.Element, error) {
	return &twiml.VoicePause{Length: strconv.Itoa(v.Seconds)}, nil
}

func (v Gather) element() (twiml.Element, error) {
	g := &twiml.VoiceGather{
		Action:  v.Action,
		Input:   v.Input,
		Timeout: strconv.Itoa(v.Timeout),
	}
	if v.Prompt != nil {
		switch v.Prompt.(type) {
		case Say, Play, Pause:
		default:
			return nil, fmt.Errorf("telephony: %T cannot be nested in gather", v.Prompt)
		}
		inner, err := v.Prompt.element()
		if err != nil {
			return nil, err
		}
		g.InnerElements = []twiml.Element{inner}
	}
	return g, nil
}

func (v Record) element() (twiml.Element, error) {
	return &twiml.VoiceRecord{
		Action:    v.Action,
		MaxLength: strconv.Itoa(v.MaxLength),
		Timeout:   strconv.Itoa(v.Timeout),
	}, nil
}

func (v Redirect) element() (twiml.Element, error) {
	if v.URL == "" {
		return nil, errors.New("telephony: redirect requires a url")
	}
	return &twiml.VoiceRedirect{Url: v.URL}, nil
}

func (Hangup) element() (twiml.Element, error) {
	return &twiml.VoiceHangup{}, nil
}
