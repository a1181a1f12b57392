package chat

// State is where the client is in the connect and login handshake.
type State int

const (
	StateDisconnected State = iota
	// StateAwaitingName: connected, no name declared yet.
	StateAwaitingName
	// StateAwaitingConfirmation: connected again after a drop; the name was
	// declared on an earlier connection and the relay has not spoken since.
	StateAwaitingConfirmation
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateAwaitingName:
		return "awaiting-name"
	case StateAwaitingConfirmation:
		return "awaiting-confirmation"
	case StateLoggedIn:
		return "logged-in"
	}
	return "unknown"
}
