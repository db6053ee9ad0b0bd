package httpclient

import "github.com/bsv-blockchain/go-peerpay/pkg/messagebox"

type wireMessage struct {
	MessageID  string `json:"messageId"`
	Recipient  string `json:"recipient,omitempty"`
	MessageBox string `json:"messageBox,omitempty"`
	Body       string `json:"body"`
	Sender     string `json:"sender,omitempty"`
}

type sendMessageRequest struct {
	Message wireMessage `json:"message"`
}

type sendMessageResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"messageId,omitempty"`
}

type listMessagesRequest struct {
	MessageBox string `json:"messageBox"`
}

type listMessagesResponse struct {
	Status   string                   `json:"status"`
	Messages []messagebox.PeerMessage `json:"messages"`
}

type acknowledgeMessageRequest struct {
	MessageIDs []string `json:"messageIds"`
}

type errorResponse struct {
	Status      string `json:"status"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// frame is a live channel message, in both directions.
type frame struct {
	Type        string       `json:"type"`
	RoomID      string       `json:"roomId,omitempty"`
	Message     *wireMessage `json:"message,omitempty"`
	Status      string       `json:"status,omitempty"`
	Description string       `json:"description,omitempty"`
}
