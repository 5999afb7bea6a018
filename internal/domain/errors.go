package domain

import "errors"

var (
	ErrMissingInput       = errors.New("missing input")
	ErrMalformedDocument  = errors.New("malformed certificate document")
	ErrMalformedProof     = errors.New("malformed proof path")
	ErrVerificationFailed = errors.New("verification failed")
	ErrLedgerUnavailable  = errors.New("ledger unavailable")
	ErrPolicyDenied       = errors.New("policy denied")
	ErrPayloadTooLarge    = errors.New("payload too large")
	ErrInvalidDigest      = errors.New("invalid digest")
	ErrNotFound           = errors.New("not found")
)

// Reason codes surfaced to callers. The first four name the failure pages of
// the public verification site.
const (
	ReasonNoQuery           = "no-query"
	ReasonXMLSyntax         = "xml-syntax"
	ReasonSubtreeSyntax     = "subtree-syntax"
	ReasonDigestMismatch    = "digest-mismatch"
	ReasonLedgerUnavailable = "ledger-unavailable"
	ReasonPolicyDenied      = "policy-denied"
	ReasonPayloadTooLarge   = "payload-too-large"
)

// ReasonFor maps an error returned by the verification flow to its reason code.
// Unknown errors map to the empty string.
func ReasonFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingInput):
		return ReasonNoQuery
	case errors.Is(err, ErrMalformedDocument):
		return ReasonXMLSyntax
	case errors.Is(err, ErrMalformedProof):
		return ReasonSubtreeSyntax
	case errors.Is(err, ErrVerificationFailed):
		return ReasonDigestMismatch
	case errors.Is(err, ErrLedgerUnavailable):
		return ReasonLedgerUnavailable
	case errors.Is(err, ErrPolicyDenied):
		return ReasonPolicyDenied
	case errors.Is(err, ErrPayloadTooLarge):
		return ReasonPayloadTooLarge
	}
	return ""
}
