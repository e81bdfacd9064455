package weekly

type State string

const (
	StateOpen       State = "open"
	StateClosed     State = "closed"
	StateSuperseded State = "superseded"
)

// A list is never reactivated: superseded is terminal.
var validNext = map[State]map[State]bool{
	StateOpen:       {StateClosed: true, StateSuperseded: true},
	StateClosed:     {StateSuperseded: true},
	StateSuperseded: {},
}

func CanTransition(from, to State) bool {
	return validNext[from][to]
}

func (l List) State() State {
	switch {
	case !l.Active:
		return StateSuperseded
	case l.Closed:
		return StateClosed
	default:
		return StateOpen
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s), nil }
