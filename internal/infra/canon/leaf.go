package canon

import (
	"crypto/sha256"
	"encoding/hex"

	"certanchor/internal/domain"
)

// DigestTag marks a child whose text is an already computed digest.
const DigestTag = "digest"

// ComputeLeafDigest hashes the concatenated contributions of root's direct
// children, in document order.
func ComputeLeafDigest(root *Node) domain.Digest {
	hasher := sha256.New()
	if root != nil {
		for _, child := range root.Children {
			hasher.Write(Contribution(child))
		}
	}
	var out domain.Digest
	hasher.Sum(out[:0])
	return out
}

// Contribution is the byte sequence a single child adds to the leaf digest
// buffer. A digest child contributes its decoded text; text that is not even
// length hex contributes nothing. Any other child contributes the SHA-256 of
// its canonical form.
func Contribution(child *Node) []byte {
	if child.Tag == DigestTag {
		decoded, err := hex.DecodeString(child.Text)
		if err != nil {
			return nil
		}
		return decoded
	}
	sum := sha256.Sum256(child.Canonical())
	return sum[:]
}

// LeafDigestFromDocument parses doc and computes its leaf digest.
func LeafDigestFromDocument(doc []byte) (domain.Digest, *Node, error) {
	root, err := Parse(doc)
	if err != nil {
		return domain.Digest{}, nil, err
	}
	return ComputeLeafDigest(root), root, nil
}
