package authentication

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bsv-blockchain/go-sdk/auth"
	"github.com/bsv-blockchain/go-sdk/auth/authpayload"
	"github.com/bsv-blockchain/go-sdk/auth/brc104"
	"github.com/bsv-blockchain/go-sdk/auth/utils"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
)

// authMessage is an incoming BRC-103 message with the request id it was carried under.
type authMessage struct {
	*auth.AuthMessage
	requestID []byte
}

func isHandshakeRequest(req *http.Request) bool {
	return req.Method == http.MethodPost && req.URL.Path == WellKnownAuthPath
}

func extractHandshakeMessage(req *http.Request) (*authMessage, error) {
	var message auth.AuthMessage
	if err := json.NewDecoder(req.Body).Decode(&message); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}

	if message.MessageType == auth.MessageTypeGeneral {
		return nil, ErrGeneralMessageInNonGeneralRequest
	}

	if message.IdentityKey == nil {
		identityKey, err := identityKeyFromHeader(req)
		if err != nil {
			return nil, fmt.Errorf("identity key is missing in both body and header: %w", err)
		}
		message.IdentityKey = identityKey
	}

	return &authMessage{AuthMessage: &message}, nil
}

func extractGeneralMessage(req *http.Request) (*authMessage, error) {
	version := req.Header.Get(brc104.HeaderVersion)
	if version == "" {
		return nil, ErrAuthenticationRequired
	}

	requestID, err := requestIDFromHeader(req)
	if err != nil {
		return nil, err
	}

	identityKey, err := identityKeyFromHeader(req)
	if err != nil {
		return nil, err
	}

	signature, err := hex.DecodeString(req.Header.Get(brc104.HeaderSignature))
	if err != nil {
		return nil, fmt.Errorf("invalid signature format: %w", err)
	}

	payload, err := authpayload.FromHTTPRequest(requestID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request payload: %w", err)
	}

	var requestedCertificates utils.RequestedCertificateSet
	if raw := req.Header.Get(brc104.HeaderRequestedCertificates); raw != "" {
		if err := json.Unmarshal([]byte(raw), &requestedCertificates); err != nil {
			return nil, fmt.Errorf("invalid requested certificates header: %w", err)
		}
	}

	return &authMessage{
		requestID: requestID,
		AuthMessage: &auth.AuthMessage{
			Version:               version,
			MessageType:           auth.MessageTypeGeneral,
			IdentityKey:           identityKey,
			Nonce:                 req.Header.Get(brc104.HeaderNonce),
			YourNonce:             req.Header.Get(brc104.HeaderYourNonce),
			RequestedCertificates: requestedCertificates,
			Payload:               payload,
			Signature:             signature,
		},
	}, nil
}

func identityKeyFromHeader(req *http.Request) (*ec.PublicKey, error) {
	value := req.Header.Get(brc104.HeaderIdentityKey)
	if value == "" {
		return nil, ErrMissingIdentityKey
	}

	identityKey, err := ec.PublicKeyFromString(value)
	if err != nil {
		return nil, errors.Join(ErrInvalidIdentityKeyFormat, err)
	}
	return identityKey, nil
}

func requestIDFromHeader(req *http.Request) ([]byte, error) {
	requestID, err := base64.StdEncoding.DecodeString(req.Header.Get(brc104.HeaderRequestID))
	if err != nil {
		return nil, errors.Join(ErrInvalidRequestID, err)
	}
	if len(requestID) != brc104.RequestIDLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidRequestID, brc104.RequestIDLength, len(requestID))
	}
	return requestID, nil
}
