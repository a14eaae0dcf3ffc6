package upload

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// State is the lifecycle state of one upload attempt.
type State int

const (
	StatePending State = iota
	StateSigning
	StateSent
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateSigning:
		return "SIGNING"
	case StateSent:
		return "SENT"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// CanTransition reports whether an attempt may move from one state to another.
func CanTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateSigning || to == StateFailed
	case StateSigning:
		return to == StateSent || to == StateFailed
	case StateSent:
		return to == StateSucceeded || to == StateFailed
	default:
		return false
	}
}

// attempt tracks the state of one Upload call.
type attempt struct {
	state    State
	logger   logrus.FieldLogger
	observer func(State)
}

func newAttempt(logger logrus.FieldLogger, observer func(State)) *attempt {
	a := &attempt{state: StatePending, logger: logger, observer: observer}
	if observer != nil {
		observer(StatePending)
	}
	return a
}

// to moves the attempt to next. An illegal transition is a bug in this
// package and panics.
func (a *attempt) to(next State) {
	if !CanTransition(a.state, next) {
		panic(fmt.Sprintf("upload: illegal state transition %s -> %s", a.state, next))
	}
	a.logger.WithField("state", next.String()).Debugf("upload %s -> %s", a.state, next)
	a.state = next
	if a.observer != nil {
		a.observer(next)
	}
}
