package countdown

// State is the controller lifecycle state.
type State int

const (
	Bootstrapping State = iota
	AwaitingInput
	Counting
	Reached
	Faulted
)

var stateNames = map[State]string{
	Bootstrapping: "bootstrapping",
	AwaitingInput: "awaiting_input",
	Counting:      "counting",
	Reached:       "reached",
	Faulted:       "faulted",
}

// StateNames lists every state in declaration order.
func StateNames() []string {
	return []string{
		Bootstrapping.String(),
		AwaitingInput.String(),
		Counting.String(),
		Reached.String(),
		Faulted.String(),
	}
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
