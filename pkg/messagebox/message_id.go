package messagebox

import (
	"context"
	"encoding/hex"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/wallet"
)

// MessageIDProtocol is the wallet protocol used to derive message ids.
var MessageIDProtocol = wallet.Protocol{
	SecurityLevel: wallet.SecurityLevelEveryApp,
	Protocol:      "messagebox",
}

// NewMessageID derives the id of a message as the hex HMAC of its body,
// keyed for the recipient, the same way MessageBox clients do.
func NewMessageID(ctx context.Context, w wallet.HMACOperations, recipient string, body string, originator string) (string, error) {
	recipientKey, err := ec.PublicKeyFromString(recipient)
	if err != nil {
		return "", fmt.Errorf("invalid recipient identity key: %w", err)
	}

	result, err := w.CreateHMAC(ctx, wallet.CreateHMACArgs{
		EncryptionArgs: wallet.EncryptionArgs{
			ProtocolID: MessageIDProtocol,
			KeyID:      "1",
			Counterparty: wallet.Counterparty{
				Type:         wallet.CounterpartyTypeOther,
				Counterparty: recipientKey,
			},
		},
		Data: []byte(body),
	}, originator)
	if err != nil {
		return "", fmt.Errorf("failed to create message id hmac: %w", err)
	}

	return hex.EncodeToString(result.HMAC[:]), nil
}

// RoomID is the live channel room of the given identity's message box.
func RoomID(identityKey string, messageBox string) string {
	return identityKey + "-" + messageBox
}
