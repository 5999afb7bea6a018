package db

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

var errDBUnavailable = errors.New("db unavailable")

func newUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Fingerprint identifies a verification request independently of when it was
// made: the same certificate, proof and ledger always share a fingerprint.
func Fingerprint(leafDigest, subtree, network, contract string) string {
	h := blake3.New()
	for _, part := range []string{
		strings.ToLower(leafDigest),
		subtree,
		network,
		strings.ToLower(contract),
	} {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
