package usecase

import (
	"context"

	"certanchor/internal/domain"
)

type Canonicalizer interface {
	LeafDigest(doc []byte) (leaf domain.Digest, rootTag string, err error)
}

type ProofService interface {
	ParseProofPath(encoded string) (domain.ProofPath, error)
	Reduce(leaf domain.Digest, path domain.ProofPath) domain.Digest
}

type PolicyEngine interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error)
}

type VerificationRecordRepository interface {
	Append(ctx context.Context, record domain.VerificationRecord) (domain.VerificationRecord, error)
	ListByLeafDigest(ctx context.Context, leafDigest string, limit int) ([]domain.VerificationRecord, error)
}
