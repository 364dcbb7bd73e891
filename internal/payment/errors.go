package payment

import "github.com/kiranalabs/kirana/internal/domain"

var (
	// ErrMissingSignature indicates the webhook arrived without a signature header.
	ErrMissingSignature = domain.Errorf(domain.EUNAUTHORIZED, "", "Missing webhook signature")

	// ErrInvalidSignature indicates the signature did not match the payload.
	// Never retried: the same bad signature will fail again.
	ErrInvalidSignature = domain.Errorf(domain.EUNAUTHORIZED, "", "Invalid webhook signature")

	// ErrMisconfigured indicates the server-held secret is absent.
	ErrMisconfigured = domain.Errorf(domain.EINTERNAL, "", "Payment provider is not configured")

	// ErrMalformedMetadata indicates the session notes cannot be decoded into
	// order intent (missing lists, length mismatch, bad JSON).
	ErrMalformedMetadata = domain.Errorf(domain.EINVALID, "", "Payment metadata is missing or malformed")
)
