// Package authentication guards HTTP handlers with BRC-103 mutual authentication.
// The middleware acts as the server side auth.Transport of an auth.Peer:
// handshakes arrive on the well-known auth endpoint, every other request must carry
// a signed general message in its headers, and responses are signed back to the caller.
package authentication

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/bsv-blockchain/go-peerpay/pkg/constants"
	"github.com/bsv-blockchain/go-peerpay/pkg/internal/authctx"
	"github.com/bsv-blockchain/go-peerpay/pkg/internal/logging"
	"github.com/bsv-blockchain/go-peerpay/pkg/internal/transport"
	"github.com/bsv-blockchain/go-sdk/auth"
	"github.com/bsv-blockchain/go-sdk/auth/authpayload"
	"github.com/bsv-blockchain/go-sdk/auth/brc104"
	"github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/go-softwarelab/common/pkg/to"
)

// WellKnownAuthPath is the endpoint receiving handshake messages.
const WellKnownAuthPath = "/.well-known/auth"

// responseSigningTimeoutMs bounds how long the peer waits for a session when signing a response.
const responseSigningTimeoutMs = 30000

type Config struct {
	// AllowUnauthenticated passes requests without auth headers through to the next handler.
	AllowUnauthenticated bool
	SessionManager       auth.SessionManager
	Logger               *slog.Logger
}

func WithAllowUnauthenticated() func(*Config) {
	return func(c *Config) {
		c.AllowUnauthenticated = true
	}
}

func WithSessionManager(sessionManager auth.SessionManager) func(*Config) {
	return func(c *Config) {
		c.SessionManager = sessionManager
	}
}

func WithLogger(logger *slog.Logger) func(*Config) {
	return func(c *Config) {
		c.Logger = logger
	}
}

type Middleware struct {
	next                 http.Handler
	log                  *slog.Logger
	allowUnauthenticated bool
	peer                 *auth.Peer

	mu     sync.RWMutex
	onData func(context.Context, *auth.AuthMessage) error
}

// NewMiddleware wraps next with BRC-103 authentication performed by the server wallet.
func NewMiddleware(next http.Handler, serverWallet wallet.Interface, opts ...func(*Config)) *Middleware {
	if serverWallet == nil {
		panic("server wallet must be provided to create authentication middleware")
	}

	cfg := to.OptionsWithDefault(Config{
		SessionManager: auth.NewSessionManager(),
	}, opts...)

	logger := logging.Child(cfg.Logger, "AuthenticationMiddleware")

	m := &Middleware{
		next:                 next,
		log:                  logger,
		allowUnauthenticated: cfg.AllowUnauthenticated,
	}

	m.peer = auth.NewPeer(&auth.PeerOptions{
		Wallet:         serverWallet,
		Transport:      m,
		SessionManager: cfg.SessionManager,
		Logger:         logger,
	})

	if _, err := m.GetRegisteredOnData(); err != nil {
		panic("auth peer did not register its message handler on the middleware")
	}

	return m
}

func (m *Middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := authctx.WithResponse(authctx.WithRequest(r.Context(), r), w)
	r = r.WithContext(ctx)

	log := m.log.With(slog.String("path", r.URL.Path), slog.String("method", r.Method))

	var err error
	if isHandshakeRequest(r) {
		err = m.handleHandshake(ctx, r)
	} else {
		err = m.handleGeneral(ctx, w, r, log)
	}

	if err != nil {
		log.WarnContext(ctx, "Request authentication failed", logging.Error(err))
		writeAuthError(w, err)
	}
}

func (m *Middleware) handleHandshake(ctx context.Context, r *http.Request) error {
	message, err := extractHandshakeMessage(r)
	if err != nil {
		if errors.Is(err, ErrGeneralMessageInNonGeneralRequest) {
			return err
		}
		return errors.Join(ErrInvalidNonGeneralRequest, err)
	}

	onData, err := m.GetRegisteredOnData()
	if err != nil {
		return err
	}

	// the peer answers through Send, which writes the response
	return onData(ctx, message.AuthMessage)
}

func (m *Middleware) handleGeneral(ctx context.Context, w http.ResponseWriter, r *http.Request, log *slog.Logger) error {
	message, err := extractGeneralMessage(r)
	if errors.Is(err, ErrAuthenticationRequired) && m.allowUnauthenticated {
		log.DebugContext(ctx, "Passing unauthenticated request through")
		m.next.ServeHTTP(w, r)
		return nil
	}
	if err != nil {
		if errors.Is(err, ErrAuthenticationRequired) {
			return err
		}
		return errors.Join(ErrInvalidGeneralRequest, err)
	}

	onData, err := m.GetRegisteredOnData()
	if err != nil {
		return err
	}

	if err := onData(ctx, message.AuthMessage); err != nil {
		return errors.Join(auth.ErrAuthFailed, fmt.Errorf("failed to verify request: %w", err))
	}

	recorder := transport.NewResponseRecorder()
	m.next.ServeHTTP(recorder, r.WithContext(authctx.WithIdentity(ctx, message.IdentityKey)))

	payload, err := authpayload.FromResponse(message.requestID, authpayload.SimplifiedHttpResponse{
		StatusCode: recorder.StatusCode(),
		Header:     recorder.Header(),
		Body:       recorder.Body(),
	})
	if err != nil {
		return fmt.Errorf("failed to build response payload: %w", err)
	}

	if err := m.peer.ToPeer(ctx, payload, message.IdentityKey, responseSigningTimeoutMs); err != nil {
		return fmt.Errorf("failed to sign response: %w", err)
	}

	if err := recorder.CopyTo(w); err != nil {
		log.ErrorContext(ctx, "Failed to write response", logging.Error(err))
	}
	return nil
}

// Send writes a message of the peer into the response of the request carried by ctx.
func (m *Middleware) Send(ctx context.Context, message *auth.AuthMessage) error {
	if message == nil || message.IdentityKey == nil {
		return errors.New("message with identity key is required")
	}

	w, err := authctx.ShouldGetResponse(ctx)
	if err != nil {
		return err
	}

	header := w.Header()
	header.Set(brc104.HeaderVersion, message.Version)
	header.Set(brc104.HeaderMessageType, string(message.MessageType))
	header.Set(brc104.HeaderIdentityKey, message.IdentityKey.ToDERHex())
	if message.Nonce != "" {
		header.Set(brc104.HeaderNonce, message.Nonce)
	}
	if message.YourNonce != "" {
		header.Set(brc104.HeaderYourNonce, message.YourNonce)
	}
	if message.Signature != nil {
		header.Set(brc104.HeaderSignature, hex.EncodeToString(message.Signature))
	}

	if message.MessageType == auth.MessageTypeGeneral {
		req, err := authctx.ShouldGetRequest(ctx)
		if err != nil {
			return err
		}
		header.Set(brc104.HeaderRequestID, req.Header.Get(brc104.HeaderRequestID))
		// the body follows from the recorded response of the next handler
		return nil
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode auth message: %w", err)
	}

	header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	header.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write auth message: %w", err)
	}
	return nil
}

func (m *Middleware) OnData(callback func(context.Context, *auth.AuthMessage) error) error {
	if callback == nil {
		return errors.New("callback cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onData != nil {
		m.log.Warn("OnData callback is being overwritten")
	}
	m.onData = callback
	return nil
}

func (m *Middleware) GetRegisteredOnData() (func(context.Context, *auth.AuthMessage) error, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.onData == nil {
		return nil, errors.New("no message handler registered")
	}
	return m.onData, nil
}

type errorResponse struct {
	Status      string `json:"status"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func writeAuthError(w http.ResponseWriter, err error) {
	status, code, description := toHTTPError(err)

	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Status:      constants.StatusError,
		Code:        code,
		Description: description,
	})
}

func toHTTPError(err error) (status int, code string, description string) {
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return http.StatusUnauthorized, constants.CodeAuthRequired, err.Error()
	case errors.Is(err, auth.ErrSessionNotFound), errors.Is(err, auth.ErrNotAuthenticated):
		return http.StatusUnauthorized, constants.CodeAuthRequired, "session not found"
	case errors.Is(err, auth.ErrInvalidNonce):
		return http.StatusUnauthorized, constants.CodeInvalidAuth, "invalid nonce"
	case errors.Is(err, auth.ErrInvalidSignature):
		return http.StatusUnauthorized, constants.CodeInvalidAuth, "invalid signature"
	case errors.Is(err, auth.ErrAuthFailed):
		return http.StatusUnauthorized, constants.CodeInvalidAuth, err.Error()
	case errors.Is(err, auth.ErrMissingCertificate):
		return http.StatusForbidden, constants.CodeInvalidAuth, "missing required certificates"
	case errors.Is(err, auth.ErrInvalidMessage),
		errors.Is(err, ErrGeneralMessageInNonGeneralRequest),
		errors.Is(err, ErrInvalidNonGeneralRequest),
		errors.Is(err, ErrInvalidGeneralRequest):
		return http.StatusBadRequest, constants.CodeInvalidAuth, err.Error()
	default:
		return http.StatusInternalServerError, constants.CodeInternal, err.Error()
	}
}
