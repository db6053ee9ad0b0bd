package logging

import (
	"log/slog"
	"testing"

	"github.com/go-softwarelab/common/pkg/slogx"
)

// NewTestLogger returns a logger writing through t.Log, so output is attached to the failing test.
func NewTestLogger(t testing.TB) *slog.Logger {
	return slogx.NewTestLogger(t)
}
