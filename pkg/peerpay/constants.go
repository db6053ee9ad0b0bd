package peerpay

import "github.com/bsv-blockchain/go-wallet-toolbox/pkg/brc29"

// MessageBox is the inbox every payment token is delivered to.
const MessageBox = "payment_inbox"

const (
	// RefundFee is kept by the recipient from a refunded payment to cover the refund transaction.
	RefundFee uint64 = 1000

	// DustThreshold is the smallest refund worth sending.
	DustThreshold uint64 = 1000
)

// Protocol is the key derivation protocol of payment outputs (BRC-29).
var Protocol = brc29.Protocol

const (
	paymentDescription = "PeerPay payment"
	outputDescription  = "Payment for PeerPay transaction"
	claimDescription   = "PeerPay Payment"
	paymentLabel       = "peerpay"

	nonceSize = 10
)
