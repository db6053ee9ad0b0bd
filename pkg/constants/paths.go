package constants

// MessageBox server endpoints.
const (
	SendMessagePath        = "/sendMessage"
	ListMessagesPath       = "/listMessages"
	AcknowledgeMessagePath = "/acknowledgeMessage"

	// LivePath is the websocket endpoint of the live channel.
	LivePath = "/ws"
)

// Live channel frame types.
const (
	FrameJoinRoom       = "joinRoom"
	FrameLeaveRoom      = "leaveRoom"
	FrameSendMessage    = "sendMessage"
	FrameSendMessageAck = "sendMessageAck"
	FrameMessage        = "message"
)

// MessageBox server error codes.
const (
	CodeAlreadyAcknowledged   = "ERR_ALREADY_ACKNOWLEDGED"
	CodeInvalidAcknowledgment = "ERR_INVALID_ACKNOWLEDGMENT"
	CodeDuplicateMessage      = "ERR_DUPLICATE_MESSAGE"
	CodeInvalidRequest        = "ERR_INVALID_REQUEST"
	CodeAuthRequired          = "ERR_AUTH_REQUIRED"
	CodeInvalidAuth           = "ERR_INVALID_AUTH"
	CodeInternal              = "ERR_INTERNAL"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)
