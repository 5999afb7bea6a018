package domain

import "context"

// Ledger is the anchoring side of verification. VerifyAndGetRoot reduces the
// proof path and looks the resulting root up on the ledger. A non-positive
// block number means the root was never anchored; the error is reserved for
// failures talking to the ledger itself.
type Ledger interface {
	VerifyAndGetRoot(ctx context.Context, leaf Digest, path ProofPath) (blockNumber int64, root Digest, err error)
}

// BlockClock resolves the timestamp (unix seconds) of a block. Used for
// display only.
type BlockClock interface {
	BlockTimestamp(ctx context.Context, blockNumber int64) (int64, error)
}

type LedgerInfo struct {
	Network  string `json:"network"`
	Contract string `json:"contract"`
}
