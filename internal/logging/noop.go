package logging

import "github.com/rs/zerolog"

// NewNoopLogger returns a logger that discards everything. Used by tests and
// by library callers that do not care about diagnostics.
func NewNoopLogger() Logger {
	return &logger{zl: zerolog.Nop()}
}
