package billing

import "fmt"

// transitionEffect is what a status change does besides updating the row.
type transitionEffect int

const (
	effectNone transitionEffect = iota
	effectNoop
	effectCreditStock
	effectReject
)

// transitions is the bill state machine. pending is initial and cancelled
// is terminal; stock goes back exactly when a bill first becomes cancelled.
var transitions = map[Status]map[Status]transitionEffect{
	StatusPending: {
		StatusPending:   effectNoop,
		StatusCompleted: effectNone,
		StatusCancelled: effectCreditStock,
	},
	StatusCompleted: {
		StatusPending:   effectReject,
		StatusCompleted: effectNoop,
		StatusCancelled: effectCreditStock,
	},
	StatusCancelled: {
		StatusPending:   effectReject,
		StatusCompleted: effectReject,
		StatusCancelled: effectNoop,
	},
}

func transition(from, to Status) (transitionEffect, error) {
	if !to.Valid() {
		return effectReject, ErrInvalidStatus
	}
	effect, ok := transitions[from][to]
	if !ok {
		return effectReject, fmt.Errorf("%w: unknown current status %q", ErrInvalidTransition, from)
	}
	if effect == effectReject {
		return effect, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	return effect, nil
}

// creditsOnDelete reports whether deleting a bill in status s returns its stock.
func creditsOnDelete(s Status) bool {
	return s != StatusCancelled
}
