// Package testlog wires the shared logging profile into tests.
package testlog

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/lcrown/weerelay/internal/logging"
)

// Start configures test logging once and returns a logger tagged with the
// test name.
func Start(t *testing.T) zerolog.Logger {
	t.Helper()
	logging.ConfigureTests()
	return zerolog.New(zerolog.NewTestWriter(t)).With().
		Str("test", t.Name()).Logger()
}
