package session

import "errors"

var (
	ErrAlreadyConnected = errors.New("session: already connected")
	ErrNotConnected     = errors.New("session: not connected")

	// ErrConnectionClosed reports a transport failure or an unexpected
	// close. The relay never sends a structured authentication failure:
	// a rejected password is observed as exactly this error right after
	// init.
	ErrConnectionClosed = errors.New("session: connection closed")

	// ErrProtocol reports a fatal decode failure (malformed frame or a
	// structural type mismatch); the connection is torn down.
	ErrProtocol = errors.New("session: protocol error")
)
