package authentication

import "errors"

var (
	ErrAuthenticationRequired            = errors.New("authentication required")
	ErrGeneralMessageInNonGeneralRequest = errors.New("general message sent to the handshake endpoint")
	ErrInvalidNonGeneralRequest          = errors.New("invalid handshake request")
	ErrInvalidGeneralRequest             = errors.New("invalid authenticated request")
	ErrMissingIdentityKey                = errors.New("missing identity key")
	ErrInvalidIdentityKeyFormat          = errors.New("invalid identity key format")
	ErrInvalidRequestID                  = errors.New("invalid request id")
)
