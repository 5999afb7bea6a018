package db

import (
	"context"
	"errors"
	"time"

	"certanchor/internal/domain"

	"gorm.io/gorm"
)

type VerificationRecordRepository struct {
	db *gorm.DB
}

func NewVerificationRecordRepository(db *gorm.DB) *VerificationRecordRepository {
	return &VerificationRecordRepository{db: db}
}

func (r *VerificationRecordRepository) Append(ctx context.Context, record domain.VerificationRecord) (domain.VerificationRecord, error) {
	if r.db == nil {
		return domain.VerificationRecord{}, errDBUnavailable
	}
	if record.LeafDigest == "" {
		return domain.VerificationRecord{}, errors.New("leaf_digest is required")
	}
	record.Fingerprint = Fingerprint(record.LeafDigest, record.Subtree, record.Network, record.Contract)

	// A repeated request whose outcome has not changed keeps its earlier record.
	latest, err := r.GetByFingerprint(ctx, record.Fingerprint)
	switch {
	case err == nil && sameOutcome(*latest, record):
		return *latest, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return domain.VerificationRecord{}, err
	}

	if record.ID == "" {
		id, err := newUUID()
		if err != nil {
			return domain.VerificationRecord{}, err
		}
		record.ID = id
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.CreatedAt = record.CreatedAt.UTC().Truncate(time.Microsecond)

	model := verificationRecordModelFromDomain(record)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.VerificationRecord{}, err
	}
	return record, nil
}

// ListByLeafDigest returns the newest records first.
func (r *VerificationRecordRepository) ListByLeafDigest(ctx context.Context, leafDigest string, limit int) ([]domain.VerificationRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []VerificationRecordModel
	q := r.db.WithContext(ctx).
		Where("leaf_digest = ?", leafDigest).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.VerificationRecord, 0, len(models))
	for _, model := range models {
		out = append(out, verificationRecordFromModel(model))
	}
	return out, nil
}

// GetByFingerprint returns the most recent record for a fingerprint.
func (r *VerificationRecordRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.VerificationRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model VerificationRecordModel
	err := r.db.WithContext(ctx).
		Where("fingerprint = ?", fingerprint).
		Order("created_at DESC").
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	record := verificationRecordFromModel(model)
	return &record, nil
}

func sameOutcome(a, b domain.VerificationRecord) bool {
	return a.Verified == b.Verified &&
		a.Reason == b.Reason &&
		a.MerkleRoot == b.MerkleRoot &&
		a.BlockNumber == b.BlockNumber
}

func verificationRecordModelFromDomain(record domain.VerificationRecord) VerificationRecordModel {
	return VerificationRecordModel{
		ID:          record.ID,
		Fingerprint: record.Fingerprint,
		LeafDigest:  record.LeafDigest,
		Subtree:     record.Subtree,
		MerkleRoot:  record.MerkleRoot,
		BlockNumber: record.BlockNumber,
		Verified:    record.Verified,
		Reason:      record.Reason,
		Network:     record.Network,
		Contract:    record.Contract,
		CreatedAt:   record.CreatedAt,
	}
}

func verificationRecordFromModel(model VerificationRecordModel) domain.VerificationRecord {
	return domain.VerificationRecord{
		ID:          model.ID,
		Fingerprint: model.Fingerprint,
		LeafDigest:  model.LeafDigest,
		Subtree:     model.Subtree,
		MerkleRoot:  model.MerkleRoot,
		BlockNumber: model.BlockNumber,
		Verified:    model.Verified,
		Reason:      model.Reason,
		Network:     model.Network,
		Contract:    model.Contract,
		CreatedAt:   model.CreatedAt.UTC(),
	}
}
