package telephony

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func formContext(body string) *gin.Context {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	r := httptest.NewRequest(http.MethodPost, "/ivr/flow", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request = r
	return c
}

func TestBindFlowForm(t *testing.T) {
	c := formContext("CallSid=CA123&Digits=+1+&SpeechResult=yes&AnsweredBy=human")

	form, err := Bind[FlowForm](c)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if form.CallSid != "CA123" {
		t.Fatalf("expected CallSid, got %q", form.CallSid)
	}
	if form.Input() != "1" {
		t.Fatalf("expected digits to win, got %q", form.Input())
	}
	if form.IsMachine() {
		t.Fatalf("human is not a machine")
	}
}

func TestBindRequiresCallSid(t *testing.T) {
	if _, err := Bind[FlowForm](formContext("Digits=1")); err == nil {
		t.Fatalf("expected error for missing CallSid")
	}
	if _, err := Bind[StatusForm](formContext("CallSid=CA1")); err == nil {
		t.Fatalf("expected error for missing CallStatus")
	}
}

func TestFlowFormSpeechInput(t *testing.T) {
	f := FlowForm{SpeechResult: "  sounds good "}
	if f.Input() != "sounds good" {
		t.Fatalf("unexpected input %q", f.Input())
	}
}

func TestIsMachine(t *testing.T) {
	cases := map[string]bool{
		"machine_start":       true,
		"machine_end_beep":    true,
		"machine_end_silence": true,
		"machine_end_other":   false,
		"human":               false,
		"fax":                 false,
		"":                    false,
	}
	for in, want := range cases {
		if got := (FlowForm{AnsweredBy: in}).IsMachine(); got != want {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}
}

func TestStatusFormDuration(t *testing.T) {
	d, err := StatusForm{CallDuration: "125"}.Duration()
	if err != nil || d == nil || *d != 125 {
		t.Fatalf("unexpected duration %v %v", d, err)
	}
	d, err = StatusForm{}.Duration()
	if err != nil || d != nil {
		t.Fatalf("expected nil duration, got %v %v", d, err)
	}
	if _, err := (StatusForm{CallDuration: "abc"}).Duration(); err == nil {
		t.Fatalf("expected error")
	}
	if s := (StatusForm{CallStatus: " Completed "}).Status(); s != "completed" {
		t.Fatalf("unexpected status %q", s)
	}
}

func TestRecordingForm(t *testing.T) {
	if (RecordingForm{RecordingStatus: "in-progress"}).HasRecording() {
		t.Fatalf("status-only callback has no recording")
	}
	f := FlowForm{CallSid: "CA1", RecordingUrl: "https://api.twilio.com/r/RE1"}
	if !f.Recording().HasRecording() {
		t.Fatalf("expected recording")
	}
}
