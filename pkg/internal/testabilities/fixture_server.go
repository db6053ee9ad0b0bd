package testabilities

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bsv-blockchain/go-peerpay/pkg/constants"
	"github.com/bsv-blockchain/go-peerpay/pkg/internal/authctx"
	"github.com/bsv-blockchain/go-peerpay/pkg/internal/authentication"
	"github.com/bsv-blockchain/go-peerpay/pkg/internal/logging"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox"
	"github.com/bsv-blockchain/go-peerpay/pkg/messagebox/memory"
	"github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

// MessageBoxServerFixture is a MessageBox server speaking the REST and live channel protocol,
// storing messages in a memory.Hub. Callers identify themselves with the identity key header,
// or through BRC-103 once WithAuthentication is set.
type MessageBoxServerFixture interface {
	WithMiddlewareFunc(func(next http.Handler) http.Handler) MessageBoxServerFixture
	WithAuthentication(serverWallet wallet.Interface) MessageBoxServerFixture
	Started() (cleanup func())

	URL() string
	Hub() *memory.Hub
}

type middlewareFunc func(next http.Handler) http.Handler

type serverFixture struct {
	testing.TB
	hub        *memory.Hub
	logger     *slog.Logger
	mux        *http.ServeMux
	middleware []middlewareFunc
	server     *httptest.Server

	serverWallet wallet.Interface
}

func NewMessageBoxServerFixture(t testing.TB, hub *memory.Hub, logger *slog.Logger) MessageBoxServerFixture {
	f := &serverFixture{
		TB:     t,
		hub:    hub,
		logger: logging.Child(logger, "MessageBoxServer"),
		mux:    http.NewServeMux(),
	}

	f.mux.HandleFunc("POST "+constants.SendMessagePath, f.identified(f.sendMessage))
	f.mux.HandleFunc("POST "+constants.ListMessagesPath, f.identified(f.listMessages))
	f.mux.HandleFunc("POST "+constants.AcknowledgeMessagePath, f.identified(f.acknowledgeMessage))

	return f
}

// WithAuthentication requires BRC-103 authentication on the REST endpoints, performed by serverWallet.
// The live channel keeps identifying callers by header.
func (f *serverFixture) WithAuthentication(serverWallet wallet.Interface) MessageBoxServerFixture {
	f.serverWallet = serverWallet
	return f
}

// WithMiddlewareFunc wraps the server handler chain, the first added middleware is the outermost.
func (f *serverFixture) WithMiddlewareFunc(middleware func(next http.Handler) http.Handler) MessageBoxServerFixture {
	f.middleware = append(f.middleware, middleware)
	return f
}

func (f *serverFixture) Started() (cleanup func()) {
	var rest http.Handler = f.mux
	if f.serverWallet != nil {
		rest = authentication.NewMiddleware(rest, f.serverWallet, authentication.WithLogger(f.logger))
	}

	root := http.NewServeMux()
	root.Handle(constants.LivePath, websocket.Handler(f.live))
	root.Handle("/", rest)

	var handler http.Handler = root
	for i := len(f.middleware) - 1; i >= 0; i-- {
		handler = f.middleware[i](handler)
	}

	f.server = httptest.NewServer(handler)
	return f.server.Close
}

func (f *serverFixture) URL() string {
	require.NotNil(f, f.server, "server must be started before URL can be retrieved: invalid test setup")
	return f.server.URL
}

func (f *serverFixture) Hub() *memory.Hub {
	return f.hub
}

type identifiedHandler func(w http.ResponseWriter, r *http.Request, transport *memory.Transport)

func (f *serverFixture) identified(handler identifiedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identityKey, authenticated := authctx.IdentityFromContext(r.Context())
		if !authenticated && f.serverWallet == nil {
			identityKey = r.Header.Get(constants.HeaderIdentityKey)
		}
		if identityKey == "" {
			writeError(w, http.StatusUnauthorized, constants.CodeAuthRequired, "caller identity is unknown")
			return
		}
		handler(w, r, f.hub.TransportFor(identityKey))
	}
}

func (f *serverFixture) sendMessage(w http.ResponseWriter, r *http.Request, transport *memory.Transport) {
	var req struct {
		Message wireMessage `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, constants.CodeInvalidRequest, err.Error())
		return
	}

	res, err := transport.SendMessage(r.Context(), messagebox.SendMessageArgs{
		Recipient:  req.Message.Recipient,
		MessageBox: req.Message.MessageBox,
		Body:       req.Message.Body,
		MessageID:  req.Message.MessageID,
	})
	if err != nil {
		f.writeTransportError(w, err)
		return
	}

	writeJSON(w, map[string]string{"status": constants.StatusSuccess, "messageId": res.MessageID})
}

func (f *serverFixture) listMessages(w http.ResponseWriter, r *http.Request, transport *memory.Transport) {
	var req struct {
		MessageBox string `json:"messageBox"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, constants.CodeInvalidRequest, err.Error())
		return
	}

	messages, err := transport.ListMessages(r.Context(), req.MessageBox)
	if err != nil {
		f.writeTransportError(w, err)
		return
	}

	writeJSON(w, map[string]any{"status": constants.StatusSuccess, "messages": messages})
}

func (f *serverFixture) acknowledgeMessage(w http.ResponseWriter, r *http.Request, transport *memory.Transport) {
	var req struct {
		MessageIDs []string `json:"messageIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, constants.CodeInvalidRequest, err.Error())
		return
	}

	if err := transport.AcknowledgeMessage(r.Context(), req.MessageIDs); err != nil {
		f.writeTransportError(w, err)
		return
	}

	writeJSON(w, map[string]string{"status": constants.StatusSuccess})
}

func (f *serverFixture) writeTransportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, messagebox.ErrAlreadyAcknowledged):
		writeError(w, http.StatusBadRequest, constants.CodeInvalidAcknowledgment, err.Error())
	case errors.Is(err, messagebox.ErrDuplicateMessage):
		writeError(w, http.StatusBadRequest, constants.CodeDuplicateMessage, err.Error())
	default:
		writeError(w, http.StatusBadRequest, constants.CodeInvalidRequest, err.Error())
	}
}

type wireMessage struct {
	MessageID  string `json:"messageId"`
	Recipient  string `json:"recipient,omitempty"`
	MessageBox string `json:"messageBox,omitempty"`
	Body       string `json:"body"`
	Sender     string `json:"sender,omitempty"`
}

type liveFrame struct {
	Type        string       `json:"type"`
	RoomID      string       `json:"roomId,omitempty"`
	Message     *wireMessage `json:"message,omitempty"`
	Status      string       `json:"status,omitempty"`
	Description string       `json:"description,omitempty"`
}

func (f *serverFixture) live(conn *websocket.Conn) {
	identityKey := conn.Request().Header.Get(constants.HeaderIdentityKey)
	transport := f.hub.TransportFor(identityKey)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writeMu sync.Mutex
	write := func(frame any) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := websocket.JSON.Send(conn, frame); err != nil {
			f.logger.Debug("Failed to write live frame", logging.Error(err))
		}
	}

	rooms := make(map[string]messagebox.Subscription)
	defer func() {
		for _, sub := range rooms {
			_ = sub.Close()
		}
	}()

	for {
		var in liveFrame
		if err := websocket.JSON.Receive(conn, &in); err != nil {
			return
		}

		switch in.Type {
		case constants.FrameJoinRoom:
			box, ok := strings.CutPrefix(in.RoomID, identityKey+"-")
			if !ok || rooms[in.RoomID] != nil {
				continue
			}
			room := in.RoomID
			sub, err := transport.SubscribeLive(ctx, messagebox.SubscribeArgs{
				MessageBox: box,
				OnMessage: func(msg messagebox.PeerMessage) {
					write(liveFrame{
						Type:    constants.FrameMessage,
						RoomID:  room,
						Message: &wireMessage{MessageID: msg.MessageID, Body: msg.Body, Sender: msg.Sender},
					})
				},
			})
			if err != nil {
				f.logger.Warn("Failed to join room", logging.Error(err))
				continue
			}
			rooms[room] = sub

		case constants.FrameLeaveRoom:
			if sub, ok := rooms[in.RoomID]; ok {
				_ = sub.Close()
				delete(rooms, in.RoomID)
			}

		case constants.FrameSendMessage:
			ack := liveFrame{Type: constants.FrameSendMessageAck, RoomID: in.RoomID, Message: in.Message, Status: constants.StatusSuccess}
			if in.Message == nil {
				ack.Status = constants.StatusError
				ack.Description = "message is missing"
				write(ack)
				continue
			}
			_, err := transport.SendLiveMessage(ctx, messagebox.SendMessageArgs{
				Recipient:  in.Message.Recipient,
				MessageBox: in.Message.MessageBox,
				Body:       in.Message.Body,
				MessageID:  in.Message.MessageID,
			})
			if err != nil {
				ack.Status = constants.StatusError
				ack.Description = err.Error()
			}
			write(ack)
		}
	}
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string, description string) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":      constants.StatusError,
		"code":        code,
		"description": description,
	})
}
