package domain

// Outcome tags the result of an OTP operation. Every value except
// OutcomeSuccess is a failure the caller can see.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNotFound
	OutcomeAlreadyUsed
	OutcomeExpired
	OutcomeInvalidCode
	OutcomeInternal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeAlreadyUsed:
		return "already_used"
	case OutcomeExpired:
		return "expired"
	case OutcomeInvalidCode:
		return "invalid_code"
	case OutcomeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Result is returned by both Issue and Verify. Message is safe to show to
// callers; Err holds the underlying cause and is only set for OutcomeInternal.
type Result struct {
	Outcome Outcome
	Message string
	Err     error
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Outcome == OutcomeSuccess }
