package merkle

import (
	"crypto/sha256"
	"crypto/subtle"

	"certanchor/internal/domain"
)

// NodeHash combines two children. There is no domain separation prefix: the
// anchoring contract hashes the plain 64 byte concatenation.
func NodeHash(left, right domain.Digest) domain.Digest {
	var buf [2 * domain.DigestSize]byte
	copy(buf[:domain.DigestSize], left[:])
	copy(buf[domain.DigestSize:], right[:])
	return sha256.Sum256(buf[:])
}

// Reduce folds leaf through path. A right step appends the sibling after the
// running digest, a left step puts it in front.
func Reduce(leaf domain.Digest, path domain.ProofPath) domain.Digest {
	current := leaf
	for _, step := range path {
		if step.Side == domain.SideRight {
			current = NodeHash(current, step.Digest)
		} else {
			current = NodeHash(step.Digest, current)
		}
	}
	return current
}

func VerifyPath(leaf domain.Digest, path domain.ProofPath, expectedRoot domain.Digest) bool {
	root := Reduce(leaf, path)
	return subtle.ConstantTimeCompare(root[:], expectedRoot[:]) == 1
}
