package ivr

import (
	"errors"
	"fmt"
)

var (
	// ErrGateRejected is matched by every *GateError.
	ErrGateRejected = errors.New("ivr: call rejected at initiation")
	// ErrAccountMismatch means a webhook named an account other than the
	// one that owns the call.
	ErrAccountMismatch = errors.New("ivr: account does not own call")
)

// GateError reports a call canceled by the credit or campaign-activity gate.
// It is an expected outcome and is answered with JSON rather than markup.
type GateError struct {
	Reason  string `json:"reason"`
	Message string `json:"error"`
	CallSID string `json:"call_sid"`
}

func (e *GateError) Error() string {
	return fmt.Sprintf("ivr: call %s rejected: %s", e.CallSID, e.Reason)
}

func (e *GateError) Is(target error) bool { return target == ErrGateRejected }
