package models

import (
	"fmt"
	"strings"
)

// State selects which bookings a listing returns.
type State int

const (
	StateAll State = iota
	StateCurrent
	StatePast
	StateFuture
	StateWaiting
	StateRejected

	// NumStates is the number of states; keep it last.
	NumStates
)

var stateNames = [...]string{
	StateAll:      "ALL",
	StateCurrent:  "CURRENT",
	StatePast:     "PAST",
	StateFuture:   "FUTURE",
	StateWaiting:  "WAITING",
	StateRejected: "REJECTED",
}

// Adding a State without a name breaks the build here.
var _ = [1]struct{}{}[len(stateNames)-int(NumStates)]

// States returns every known State in declaration order.
func States() []State {
	out := make([]State, 0, NumStates)
	for s := StateAll; s < NumStates; s++ {
		out = append(out, s)
	}
	return out
}

func (s State) String() string {
	if s < 0 || s >= NumStates {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) Valid() bool {
	return s >= 0 && s < NumStates
}

// ErrUnknownState is returned by ParseState for unrecognised input.
type ErrUnknownState struct {
	Raw string
}

func (e *ErrUnknownState) Error() string {
	return "Unknown state: " + e.Raw
}

// ParseState is case-insensitive; an empty string means ALL.
func ParseState(raw string) (State, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StateAll, nil
	}
	upper := strings.ToUpper(trimmed)
	for i, name := range stateNames {
		if name == upper {
			return State(i), nil
		}
	}
	return StateAll, &ErrUnknownState{Raw: raw}
}
