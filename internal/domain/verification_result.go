package domain

import "time"

const DateUnknown = "N/A"

// VerificationResult is what a single verification request produces, for both
// outcomes. Failed results carry the reason code and whatever was derived
// before the failure.
type VerificationResult struct {
	Verified       bool              `json:"verified" cbor:"verified"`
	Reason         string            `json:"reason,omitempty" cbor:"reason,omitempty"`
	RootTag        string            `json:"root_tag,omitempty" cbor:"root_tag,omitempty"`
	LeafDigest     string            `json:"leaf_digest,omitempty" cbor:"leaf_digest,omitempty"`
	MerkleRoot     string            `json:"merkle_root,omitempty" cbor:"merkle_root,omitempty"`
	BlockNumber    int64             `json:"block_number,omitempty" cbor:"block_number,omitempty"`
	BlockTimestamp int64             `json:"block_timestamp,omitempty" cbor:"block_timestamp,omitempty"`
	Date           string            `json:"date,omitempty" cbor:"date,omitempty"`
	ProofLength    int               `json:"proof_length,omitempty" cbor:"proof_length,omitempty"`
	Ledger         LedgerInfo        `json:"ledger" cbor:"ledger"`
	Policy         *PolicyEvaluation `json:"policy,omitempty" cbor:"policy,omitempty"`
}

// VerificationRecord is the persisted trace of a verification request.
type VerificationRecord struct {
	ID          string
	Fingerprint string
	LeafDigest  string
	Subtree     string
	MerkleRoot  string
	BlockNumber int64
	Verified    bool
	Reason      string
	Network     string
	Contract    string
	CreatedAt   time.Time
}

// DateString renders a block timestamp as YYYY-MM-DD in UTC.
func DateString(unixSeconds int64) string {
	if unixSeconds <= 0 {
		return DateUnknown
	}
	return time.Unix(unixSeconds, 0).UTC().Format("2006-01-02")
}
