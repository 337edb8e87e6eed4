package protocol

import "errors"

var (
	// ErrIncomplete reports a cursor underrun: a declared value extends past
	// the buffered bytes. Inside a complete frame this is corruption; the
	// framer maps it to a malformed-frame error, while at stream level it
	// means "wait for more bytes".
	ErrIncomplete = errors.New("protocol: incomplete data")

	ErrUnknownType  = errors.New("protocol: unknown type tag")
	ErrTypeMismatch = errors.New("protocol: type mismatch")
	ErrBadNumber    = errors.New("protocol: malformed numeric literal")
	ErrBadHData     = errors.New("protocol: malformed hdata declaration")
)
