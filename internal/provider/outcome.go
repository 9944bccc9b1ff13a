package provider

import "fmt"

// Status tags the result of a single provider attempt.
type Status int

const (
	// Success means the provider responded and the payload is usable.
	Success Status = iota
	// Insufficient means the provider responded but the payload failed a
	// quality check (empty list, auth wall, too little text).
	Insufficient
	// Failure means the provider errored (network, HTTP, parse).
	Failure
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Insufficient:
		return "insufficient"
	case Failure:
		return "failure"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome is the tagged result of one provider call. The cascade treats
// Insufficient and Failure identically for fallthrough but keeps the
// distinction for diagnostics.
type Outcome struct {
	Status Status
	Reason string
	Err    error
}

// OK returns a Success outcome.
func OK() Outcome { return Outcome{Status: Success} }

// Short returns an Insufficient outcome with a human-readable reason.
func Short(reason string) Outcome { return Outcome{Status: Insufficient, Reason: reason} }

// Fail returns a Failure outcome wrapping err.
func Fail(err error) Outcome { return Outcome{Status: Failure, Err: err} }

// Describe renders the outcome for diagnostics.
func (o Outcome) Describe() string {
	switch o.Status {
	case Success:
		return "success"
	case Insufficient:
		return "insufficient: " + o.Reason
	case Failure:
		if o.Err != nil {
			return "failure: " + o.Err.Error()
		}
		return "failure"
	}
	return o.Status.String()
}
