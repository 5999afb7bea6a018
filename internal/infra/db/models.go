package db

import "time"

type VerificationRecordModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	Fingerprint string    `gorm:"index;not null"`
	LeafDigest  string    `gorm:"index;not null"`
	Subtree     string    `gorm:"not null"`
	MerkleRoot  string    `gorm:"not null"`
	BlockNumber int64     `gorm:"not null"`
	Verified    bool      `gorm:"not null"`
	Reason      string    `gorm:"not null"`
	Network     string    `gorm:"not null"`
	Contract    string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (VerificationRecordModel) TableName() string {
	return "verification_records"
}
