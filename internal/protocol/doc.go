// Package protocol owns the relay wire contract and parsing primitives.
//
// Ownership boundary:
// - typed object decoding (one value per 3-byte type tag)
// - the decoded object model and its structured accessors
// - outbound command line construction
package protocol
