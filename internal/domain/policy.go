package domain

type PolicyInput struct {
	Verification PolicyVerification `json:"verification"`
	Ledger       LedgerInfo         `json:"ledger"`
	Now          int64              `json:"now"`
}

type PolicyVerification struct {
	LeafDigest     string `json:"leaf_digest"`
	MerkleRoot     string `json:"merkle_root"`
	BlockNumber    int64  `json:"block_number"`
	BlockTimestamp int64  `json:"block_timestamp,omitempty"`
	ProofLength    int    `json:"proof_length"`
	RootTag        string `json:"root_tag"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}

type PolicyEvaluation struct {
	BundleID   string       `json:"bundle_id,omitempty"`
	BundleHash string       `json:"bundle_hash"`
	Result     PolicyResult `json:"result"`
}
