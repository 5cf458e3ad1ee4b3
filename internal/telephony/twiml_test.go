package telephony

import (
	"strings"
	"testing"
)

func TestRenderTwiMLApology(t *testing.T) {
	xml, err := RenderTwiML(Apology())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, want := range []string{"<Response>", "<Say", ApologyText, "<Hangup"} {
		if !strings.Contains(xml, want) {
			t.Fatalf("expected %q in xml: %s", want, xml)
		}
	}
	if strings.Index(xml, "<Say") > strings.Index(xml, "<Hangup") {
		t.Fatalf("expected say before hangup: %s", xml)
	}
}

func TestRenderTwiMLGatherNestsPrompt(t *testing.T) {
	var r Response
	r.Add(Gather{Input: "dtmf speech", Timeout: 5, Action: "https://ivr.example/ivr/flow", Prompt: Play{URL: "https://cdn.example/a.mp3"}})

	xml, err := RenderTwiML(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	gather := strings.Index(xml, "<Gather")
	play := strings.Index(xml, "<Play")
	end := strings.Index(xml, "</Gather>")
	if gather < 0 || play < 0 || end < 0 || !(gather < play && play < end) {
		t.Fatalf("expected play nested in gather: %s", xml)
	}
	if !strings.Contains(xml, `"dtmf speech"`) || !strings.Contains(xml, `"5"`) {
		t.Fatalf("missing gather attributes: %s", xml)
	}
}

func TestRenderTwiMLRecord(t *testing.T) {
	var r Response
	r.Add(Say{Text: "Tell us more"}, Record{Action: "https://ivr.example/ivr/recording", MaxLength: 60, Timeout: 5})

	xml, err := RenderTwiML(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, want := range []string{"<Record", `"60"`, `"5"`, "/ivr/recording"} {
		if !strings.Contains(xml, want) {
			t.Fatalf("expected %q in xml: %s", want, xml)
		}
	}
}

func TestRenderTwiMLRejectsBadVerbs(t *testing.T) {
	cases := []Response{
		{Verbs: []Verb{Redirect{}}},
		{Verbs: []Verb{Play{}}},
		{Verbs: []Verb{nil}},
		{Verbs: []Verb{Gather{Prompt: Hangup{}}}},
	}
	for i, r := range cases {
		if _, err := RenderTwiML(r); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
