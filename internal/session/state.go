package session

// State is one step of the connection lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateAuthenticated
	StateActive
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}
