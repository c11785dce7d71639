package circuitbreaker

// State of the breaker guarding the counter store. The numeric value is exported as the
// counter_breaker_state gauge, so the order is part of the metrics contract.
type State int

const (
	StateClosed   State = iota // increments pass through
	StateOpen                  // increments fail fast until the open timeout elapses
	StateHalfOpen              // a single probe increment decides whether to close again
)

var stateNames = [...]string{
	StateClosed:   "closed",
	StateOpen:     "open",
	StateHalfOpen: "half-open",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
