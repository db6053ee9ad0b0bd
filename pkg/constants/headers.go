package constants

// BRC-104 HTTP header constants
const (
	// AuthHeaderPrefix is the common prefix for all BSV auth headers
	AuthHeaderPrefix = "x-bsv-auth-"

	// HeaderIdentityKey contains the sender's identity public key.
	// Plain HTTP clients assert their identity with it, authenticated ones get it set by authhttp.
	HeaderIdentityKey = AuthHeaderPrefix + "identity-key"

	HeaderContentType = "Content-Type"
	ContentTypeJSON   = "application/json"
)
