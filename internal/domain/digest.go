package domain

import (
	"encoding/hex"
	"errors"
)

const DigestSize = 32

// Digest is a SHA-256 output. Leaf digests, sibling digests and Merkle roots
// all share this representation.
type Digest [DigestSize]byte

var errDigestLength = errors.New("digest must be 32 bytes")

func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

// ParseDigestHex decodes a 64 character hex string (either case).
func ParseDigestHex(s string) (Digest, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, err
	}
	return DigestFromBytes(raw)
}

func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestSize {
		return d, errDigestLength
	}
	copy(d[:], b)
	return d, nil
}

type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideRight {
		return "right"
	}
	return "left"
}

// Code is the single character used in the compact proof encoding.
func (s Side) Code() string {
	if s == SideRight {
		return "r"
	}
	return "l"
}

// ProofStep is one sibling on the way from a leaf to the root. Side tells on
// which side of the running digest the sibling is concatenated.
type ProofStep struct {
	Side   Side
	Digest Digest
}

// ProofPath is ordered bottom-to-top.
type ProofPath []ProofStep
