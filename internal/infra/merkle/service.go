package merkle

import "certanchor/internal/domain"

type Service struct{}

func (s *Service) ParseProofPath(encoded string) (domain.ProofPath, error) {
	return ParseProofPath(encoded)
}

func (s *Service) Reduce(leaf domain.Digest, path domain.ProofPath) domain.Digest {
	return Reduce(leaf, path)
}
