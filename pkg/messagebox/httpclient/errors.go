package httpclient

import (
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-peerpay/pkg/constants"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox"
)

// ErrClosed is returned when the client was closed.
var ErrClosed = errors.New("messagebox client closed")

// ServerError is an error reported by the MessageBox server.
type ServerError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *ServerError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("messagebox server responded with status %d: %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("messagebox server responded with status %d (%s): %s", e.StatusCode, e.Code, e.Description)
}

// Is maps server error codes to messagebox errors.
func (e *ServerError) Is(target error) bool {
	switch e.Code {
	case constants.CodeAlreadyAcknowledged, constants.CodeInvalidAcknowledgment:
		return target == messagebox.ErrAlreadyAcknowledged
	case constants.CodeDuplicateMessage:
		return target == messagebox.ErrDuplicateMessage
	default:
		return false
	}
}
