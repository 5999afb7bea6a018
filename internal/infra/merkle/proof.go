package merkle

import (
	"encoding/hex"
	"fmt"
	"strings"

	"certanchor/internal/domain"
)

const (
	stepSeparator = ":"
	sideSeparator = "-"
	rightCode     = "r"
)

// ParseProofPath decodes the compact proof encoding "side-hex:side-hex:...".
//
// Only "r" selects the right side; every other side code, "l" included, means
// left. Sibling hex must be non-empty, even length and at most 32 bytes;
// shorter siblings are left-padded with zeros, the way the anchoring contract
// reads them as uint256. Errors wrap domain.ErrMalformedProof.
func ParseProofPath(encoded string) (domain.ProofPath, error) {
	tokens := strings.Split(encoded, stepSeparator)
	path := make(domain.ProofPath, 0, len(tokens))
	for i, token := range tokens {
		step, err := parseStep(token)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %s", domain.ErrMalformedProof, i, err.Error())
		}
		path = append(path, step)
	}
	return path, nil
}

func parseStep(token string) (domain.ProofStep, error) {
	side, digestHex, ok := strings.Cut(token, sideSeparator)
	if !ok {
		return domain.ProofStep{}, fmt.Errorf("expected side%sdigest", sideSeparator)
	}
	if digestHex == "" {
		return domain.ProofStep{}, fmt.Errorf("empty digest")
	}
	raw, err := hex.DecodeString(digestHex)
	if err != nil {
		return domain.ProofStep{}, err
	}
	if len(raw) > domain.DigestSize {
		return domain.ProofStep{}, fmt.Errorf("digest longer than %d bytes", domain.DigestSize)
	}

	step := domain.ProofStep{Side: domain.SideLeft}
	if side == rightCode {
		step.Side = domain.SideRight
	}
	copy(step.Digest[domain.DigestSize-len(raw):], raw)
	return step, nil
}

// FormatProofPath is the inverse of ParseProofPath for full-width digests.
func FormatProofPath(path domain.ProofPath) string {
	tokens := make([]string, 0, len(path))
	for _, step := range path {
		tokens = append(tokens, step.Side.Code()+sideSeparator+step.Digest.Hex())
	}
	return strings.Join(tokens, stepSeparator)
}
