package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"certanchor/internal/domain"

	"github.com/ethereum/go-ethereum/log"
)

// VerifyCertificateRequest carries the raw inputs of one verification. A nil
// field means the caller did not supply it, which is different from an empty
// value: an empty certificate is malformed, a missing one is not.
type VerifyCertificateRequest struct {
	Certificate *string
	Subtree     *string
}

type VerifyCertificate struct {
	Canon   Canonicalizer
	Proofs  ProofService
	Ledger  domain.Ledger
	Blocks  domain.BlockClock
	Policy  PolicyEngine
	Records VerificationRecordRepository
	Info    domain.LedgerInfo
	Now     func() time.Time
}

// Execute runs the verification pipeline. The returned result is non-nil for
// every terminal outcome so callers can render the reason; the error tells
// which step rejected the request.
func (uc *VerifyCertificate) Execute(ctx context.Context, req VerifyCertificateRequest) (*domain.VerificationResult, error) {
	res := &domain.VerificationResult{Ledger: uc.Info}

	if req.Certificate == nil || req.Subtree == nil {
		return uc.fail(ctx, res, "", domain.ErrMissingInput)
	}

	leaf, rootTag, err := uc.Canon.LeafDigest([]byte(*req.Certificate))
	if err != nil {
		return uc.fail(ctx, res, "", err)
	}
	res.RootTag = rootTag
	res.LeafDigest = leaf.Hex()

	path, err := uc.Proofs.ParseProofPath(*req.Subtree)
	if err != nil {
		return uc.fail(ctx, res, *req.Subtree, err)
	}
	res.ProofLength = len(path)

	block, anchored, err := uc.Ledger.VerifyAndGetRoot(ctx, leaf, path)
	if err != nil {
		if !errors.Is(err, domain.ErrLedgerUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
		}
		return uc.fail(ctx, res, *req.Subtree, err)
	}
	if block <= 0 {
		return uc.fail(ctx, res, *req.Subtree, domain.ErrVerificationFailed)
	}
	// The root is only reported once the ledger vouches for it.
	root := uc.Proofs.Reduce(leaf, path)
	if !anchored.IsZero() && anchored != root {
		return uc.fail(ctx, res, *req.Subtree, fmt.Errorf("%w: ledger root %s does not match proof root %s",
			domain.ErrLedgerUnavailable, anchored.Hex(), root.Hex()))
	}
	res.MerkleRoot = root.Hex()
	res.BlockNumber = block

	res.Date = domain.DateUnknown
	if uc.Blocks != nil {
		ts, err := uc.Blocks.BlockTimestamp(ctx, block)
		if err != nil {
			log.Warn("Block timestamp lookup failed", "block", block, "err", err)
		} else {
			res.BlockTimestamp = ts
			res.Date = domain.DateString(ts)
		}
	}

	if uc.Policy != nil {
		eval, err := uc.Policy.Evaluate(ctx, domain.PolicyInput{
			Verification: domain.PolicyVerification{
				LeafDigest:     res.LeafDigest,
				MerkleRoot:     res.MerkleRoot,
				BlockNumber:    res.BlockNumber,
				BlockTimestamp: res.BlockTimestamp,
				ProofLength:    res.ProofLength,
				RootTag:        res.RootTag,
			},
			Ledger: uc.Info,
			Now:    uc.now().Unix(),
		})
		if err != nil {
			return res, fmt.Errorf("evaluate policy: %w", err)
		}
		res.Policy = &eval
		if !eval.Result.Allow {
			return uc.fail(ctx, res, *req.Subtree, domain.ErrPolicyDenied)
		}
	}

	res.Verified = true
	uc.record(ctx, res, *req.Subtree)
	log.Info("Certificate verified", "leaf", res.LeafDigest, "root", res.MerkleRoot, "block", block, "date", res.Date)
	return res, nil
}

func (uc *VerifyCertificate) fail(ctx context.Context, res *domain.VerificationResult, subtree string, err error) (*domain.VerificationResult, error) {
	res.Verified = false
	res.Reason = domain.ReasonFor(err)
	uc.record(ctx, res, subtree)
	log.Info("Certificate rejected", "reason", res.Reason, "leaf", res.LeafDigest, "block", res.BlockNumber, "err", err)
	return res, err
}

// record persists the outcome once a leaf digest is known. Storage problems
// never change the verification answer.
func (uc *VerifyCertificate) record(ctx context.Context, res *domain.VerificationResult, subtree string) {
	if uc.Records == nil || res.LeafDigest == "" {
		return
	}
	_, err := uc.Records.Append(ctx, domain.VerificationRecord{
		LeafDigest:  res.LeafDigest,
		Subtree:     subtree,
		MerkleRoot:  res.MerkleRoot,
		BlockNumber: res.BlockNumber,
		Verified:    res.Verified,
		Reason:      res.Reason,
		Network:     res.Ledger.Network,
		Contract:    res.Ledger.Contract,
		CreatedAt:   uc.now().UTC(),
	})
	if err != nil {
		log.Warn("Failed to record verification", "leaf", res.LeafDigest, "err", err)
	}
}

func (uc *VerifyCertificate) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}
