package usecase

import (
	"context"
	"fmt"

	"certanchor/internal/domain"
)

const (
	DefaultRecordLimit = 50
	MaxRecordLimit     = 500
)

type ListVerificationRecords struct {
	Records VerificationRecordRepository
}

func (uc *ListVerificationRecords) Execute(ctx context.Context, leafDigest string, limit int) ([]domain.VerificationRecord, error) {
	leaf, err := domain.ParseDigestHex(leafDigest)
	if err != nil {
		return nil, fmt.Errorf("%w: leaf digest: %v", domain.ErrInvalidDigest, err)
	}
	if limit <= 0 {
		limit = DefaultRecordLimit
	}
	if limit > MaxRecordLimit {
		limit = MaxRecordLimit
	}
	return uc.Records.ListByLeafDigest(ctx, leaf.Hex(), limit)
}
