package db

import (
	"context"
	"errors"
	"testing"

	"certanchor/internal/config"
	"certanchor/internal/domain"
)

func TestFingerprintStableAndDistinct(t *testing.T) {
	leaf := "9db41bc13e7a06ee3e741c2590c5aa5fae0bf55e7b41ab733319509bfa0f0d7d"
	a := Fingerprint(leaf, "r-ab", "ropsten", "0xd123Ec03ACdbC36e4fA818c983C259049EE705e0")
	b := Fingerprint(leaf, "r-ab", "ropsten", "0xd123ec03acdbc36e4fa818c983c259049ee705e0")
	if a != b {
		t.Fatalf("contract address case must not change the fingerprint")
	}
	if len(a) != 64 {
		t.Fatalf("expected 32-byte hex fingerprint, got %d chars", len(a))
	}
	if a == Fingerprint(leaf, "l-ab", "ropsten", "0xd123Ec03ACdbC36e4fA818c983C259049EE705e0") {
		t.Fatalf("different proofs must not collide")
	}
	if Fingerprint("ab", "c", "n", "x") == Fingerprint("a", "bc", "n", "x") {
		t.Fatalf("field boundaries must be part of the fingerprint")
	}
}

func TestSameOutcome(t *testing.T) {
	verified := domain.VerificationRecord{
		ID:          "a",
		MerkleRoot:  "38e8a9050ec34c077e7a16761efff2793a5af5fe869abdfef457d70db8f97ddc",
		BlockNumber: 5723001,
		Verified:    true,
	}
	again := verified
	again.ID = "b"
	if !sameOutcome(verified, again) {
		t.Fatalf("records differing only by id must share an outcome")
	}
	unavailable := domain.VerificationRecord{Reason: domain.ReasonLedgerUnavailable}
	if sameOutcome(verified, unavailable) {
		t.Fatalf("a verified record must not absorb a failure")
	}
	moved := verified
	moved.BlockNumber = 5723002
	if sameOutcome(verified, moved) {
		t.Fatalf("a different anchoring block is a new outcome")
	}
}

func TestRepositoryWithoutDB(t *testing.T) {
	repo := NewVerificationRecordRepository(nil)
	if _, err := repo.Append(context.Background(), domain.VerificationRecord{LeafDigest: "aa"}); !errors.Is(err, errDBUnavailable) {
		t.Fatalf("expected db unavailable, got %v", err)
	}
	if _, err := repo.ListByLeafDigest(context.Background(), "aa", 10); !errors.Is(err, errDBUnavailable) {
		t.Fatalf("expected db unavailable, got %v", err)
	}
	if _, err := repo.GetByFingerprint(context.Background(), "aa"); !errors.Is(err, errDBUnavailable) {
		t.Fatalf("expected db unavailable, got %v", err)
	}
}

func TestNoDBStore(t *testing.T) {
	store, err := NewStore(config.Config{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if store.Enabled() {
		t.Fatalf("expected no-db mode")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
