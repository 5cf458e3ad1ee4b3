package telephony

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Voice webhook payloads. Twilio posts application/x-www-form-urlencoded; only
// the fields the IVR engine reads are bound.
// Ref: https://www.twilio.com/docs/voice/twiml#request-parameters

// FlowForm is posted to the flow endpoint after each gather, redirect or
// answering-machine detection.
type FlowForm struct {
	CallSid         string `form:"CallSid" binding:"required"`
	AccountSid      string `form:"AccountSid"`
	Digits          string `form:"Digits"`
	SpeechResult    string `form:"SpeechResult"`
	AnsweredBy      string `form:"AnsweredBy"`
	RecordingUrl    string `form:"RecordingUrl"`
	RecordingStatus string `form:"RecordingStatus"`
}

// Input returns the caller's answer: digits win over a speech transcript.
func (f FlowForm) Input() string {
	if d := strings.TrimSpace(f.Digits); d != "" {
		return d
	}
	return strings.TrimSpace(f.SpeechResult)
}

// IsMachine reports whether answering-machine detection fired. machine_end_other
// is treated as a human.
func (f FlowForm) IsMachine() bool {
	return isMachine(f.AnsweredBy)
}

func (f FlowForm) Recording() RecordingForm {
	return RecordingForm{
		CallSid:         f.CallSid,
		AccountSid:      f.AccountSid,
		RecordingUrl:    f.RecordingUrl,
		RecordingStatus: f.RecordingStatus,
	}
}

// RecordingForm is posted by <Record> actions and recording status callbacks.
type RecordingForm struct {
	CallSid         string `form:"CallSid" binding:"required"`
	AccountSid      string `form:"AccountSid"`
	RecordingUrl    string `form:"RecordingUrl"`
	RecordingSid    string `form:"RecordingSid"`
	RecordingStatus string `form:"RecordingStatus"`
}

// HasRecording reports whether the callback carries a finished recording.
func (f RecordingForm) HasRecording() bool {
	return strings.TrimSpace(f.RecordingUrl) != ""
}

// StatusForm is posted by the call status callback.
type StatusForm struct {
	CallSid      string `form:"CallSid" binding:"required"`
	AccountSid   string `form:"AccountSid"`
	CallStatus   string `form:"CallStatus" binding:"required"`
	CallDuration string `form:"CallDuration"`
}

// Duration parses CallDuration. nil means the provider did not report one.
func (f StatusForm) Duration() (*int, error) {
	s := strings.TrimSpace(f.CallDuration)
	if s == "" {
		return nil, nil
	}
	d, err := strconv.Atoi(s)
	if err != nil || d < 0 {
		return nil, fmt.Errorf("telephony: invalid CallDuration %q", f.CallDuration)
	}
	return &d, nil
}

func (f StatusForm) Status() string {
	return strings.ToLower(strings.TrimSpace(f.CallStatus))
}

func isMachine(answeredBy string) bool {
	a := strings.ToLower(strings.TrimSpace(answeredBy))
	return strings.HasPrefix(a, "machine") && a != "machine_end_other"
}

// Bind parses and validates a webhook form from the request body.
func Bind[T FlowForm | RecordingForm | StatusForm](c *gin.Context) (T, error) {
	var f T
	if err := c.ShouldBind(&f); err != nil {
		return f, fmt.Errorf("telephony: bind %T: %w", f, err)
	}
	return f, nil
}
