package script

import (
	"fmt"
	"strings"
)

// StepKind distinguishes a playable step from the terminal hangup state.
type StepKind uint8

const (
	KindStep StepKind = iota + 1
	KindHangup
)

const hangupValue = "hangup"

// StepID identifies a position in a script: either a page/block pair or hangup.
//
// Persisted form is "pageId:blockId" or "hangup". Parse at the boundary with
// ParseStepID and keep the typed value everywhere else.
type StepID struct {
	Kind  StepKind
	Page  string
	Block string
}

// Hangup is the terminal step.
var Hangup = StepID{Kind: KindHangup}

// Initial is the step used when an attempt has no persisted current_step.
var Initial = Step("page_1", "block_1")

func Step(page, block string) StepID {
	return StepID{Kind: KindStep, Page: page, Block: block}
}

// ParseStepID parses the persisted form of a step.
func ParseStepID(s string) (StepID, error) {
	s = strings.TrimSpace(s)
	if s == hangupValue {
		return Hangup, nil
	}
	page, block, ok := strings.Cut(s, ":")
	if !ok || page == "" || block == "" {
		return StepID{}, fmt.Errorf("%w: invalid step %q", ErrMalformedScript, s)
	}
	return Step(page, block), nil
}

func (s StepID) IsHangup() bool { return s.Kind == KindHangup }

func (s StepID) IsZero() bool { return s.Kind == 0 }

func (s StepID) String() string {
	switch s.Kind {
	case KindHangup:
		return hangupValue
	case KindStep:
		return s.Page + ":" + s.Block
	default:
		return ""
	}
}
