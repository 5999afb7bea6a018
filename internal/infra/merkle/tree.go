package merkle

import (
	"errors"

	"certanchor/internal/domain"
)

var (
	ErrEmptyTree    = errors.New("empty merkle tree")
	ErrInvalidIndex = errors.New("invalid leaf index")
)

// Root builds the tree the anchoring side commits to: leaves are split at the
// largest power of two below the count, and every inner node is NodeHash of
// its children. A single leaf is its own root.
func Root(leaves []domain.Digest) (domain.Digest, error) {
	if len(leaves) == 0 {
		return domain.Digest{}, ErrEmptyTree
	}
	return treeHash(leaves), nil
}

// ProofPathFor returns the path that reduces leaves[index] to Root(leaves).
func ProofPathFor(leaves []domain.Digest, index int) (domain.ProofPath, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}
	if index < 0 || index >= len(leaves) {
		return nil, ErrInvalidIndex
	}
	path := make(domain.ProofPath, 0)
	inclusionPath(leaves, index, &path)
	return path, nil
}

func treeHash(leaves []domain.Digest) domain.Digest {
	if len(leaves) == 1 {
		return leaves[0]
	}
	k := largestPowerOfTwoLessThan(len(leaves))
	return NodeHash(treeHash(leaves[:k]), treeHash(leaves[k:]))
}

func inclusionPath(leaves []domain.Digest, index int, path *domain.ProofPath) {
	if len(leaves) == 1 {
		return
	}
	k := largestPowerOfTwoLessThan(len(leaves))
	if index < k {
		inclusionPath(leaves[:k], index, path)
		*path = append(*path, domain.ProofStep{Side: domain.SideRight, Digest: treeHash(leaves[k:])})
		return
	}
	inclusionPath(leaves[k:], index-k, path)
	*path = append(*path, domain.ProofStep{Side: domain.SideLeft, Digest: treeHash(leaves[:k])})
}

func largestPowerOfTwoLessThan(value int) int {
	power := 1
	for power<<1 < value {
		power <<= 1
	}
	return power
}
