package notify

import "fmt"

// OutcomeKind classifies the result of a dispatch attempt
type OutcomeKind int

const (
	// OutcomeDelivered means every intended recipient was delivered to.
	// A zero-item batch (empty alert window) is also Delivered.
	OutcomeDelivered OutcomeKind = iota

	// OutcomePartial means a multi-recipient dispatch delivered to some
	// recipients and failed for others. The batch is not retried; the
	// counts are recorded instead.
	OutcomePartial

	// OutcomeFailed means the attempt did not deliver. The retry policy
	// decides what happens next.
	OutcomeFailed
)

// Outcome is the result value returned from a dispatch attempt. No
// errors cross the dispatcher boundary as panics or raised exceptions;
// everything the worker needs to act on is in here.
type Outcome struct {
	Kind      OutcomeKind
	Delivered int
	Failed    int
	Err       error
}

// Delivered builds a fully-successful outcome for n recipients
func Delivered(n int) Outcome {
	return Outcome{Kind: OutcomeDelivered, Delivered: n}
}

// Partial builds a partial-success outcome with per-recipient counts
func Partial(delivered, failed int) Outcome {
	return Outcome{Kind: OutcomePartial, Delivered: delivered, Failed: failed}
}

// Failed builds a failed outcome carrying the classified error
func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}

// String renders the outcome for logs
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeDelivered:
		return fmt.Sprintf("delivered(%d)", o.Delivered)
	case OutcomePartial:
		return fmt.Sprintf("partial(delivered=%d failed=%d)", o.Delivered, o.Failed)
	default:
		return fmt.Sprintf("failed(%v)", o.Err)
	}
}
