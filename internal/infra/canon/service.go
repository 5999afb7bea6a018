package canon

import "certanchor/internal/domain"

type Service struct{}

// LeafDigest parses doc and returns its leaf digest and root tag.
func (s *Service) LeafDigest(doc []byte) (domain.Digest, string, error) {
	digest, root, err := LeafDigestFromDocument(doc)
	if err != nil {
		return domain.Digest{}, "", err
	}
	return digest, root.Tag, nil
}
