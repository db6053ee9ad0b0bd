package messagebox

import "errors"

var (
	// ErrAlreadyAcknowledged is returned when acknowledging a message that was already acknowledged (and removed).
	ErrAlreadyAcknowledged = errors.New("message already acknowledged")

	// ErrEmptyRecipient is returned when a message has no recipient.
	ErrEmptyRecipient = errors.New("message recipient must be provided")

	// ErrEmptyMessageBox is returned when no message box name is given.
	ErrEmptyMessageBox = errors.New("message box name must be provided")

	// ErrNoMessageIDs is returned when acknowledging an empty list of messages.
	ErrNoMessageIDs = errors.New("at least one message id must be provided")

	// ErrDuplicateMessage is returned when a message with the same id is already stored in the box.
	ErrDuplicateMessage = errors.New("message with the same id already exists")

	// ErrNoMessageHandler is returned when subscribing without a message callback.
	ErrNoMessageHandler = errors.New("message handler must be provided")
)

// ValidateSendArgs checks the arguments common to SendMessage and SendLiveMessage.
func ValidateSendArgs(args SendMessageArgs) error {
	if args.Recipient == "" {
		return ErrEmptyRecipient
	}
	if args.MessageBox == "" {
		return ErrEmptyMessageBox
	}
	return nil
}
