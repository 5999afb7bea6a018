package http

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"certanchor/internal/domain"
	"certanchor/internal/infra/canon"
	"certanchor/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string         `json:"code" cbor:"code"`
	Message string         `json:"message" cbor:"message"`
	Details map[string]any `json:"details,omitempty" cbor:"details,omitempty"`
}

type verifyRequest struct {
	Certificate *string `json:"certificate"`
	Subtree     *string `json:"subtree"`
}

type verifyResponse struct {
	domain.VerificationResult
	Error *errorResponse `json:"error,omitempty" cbor:"error,omitempty"`
}

type digestRequest struct {
	Certificate string `json:"certificate"`
}

type digestPart struct {
	Tag          string `json:"tag" cbor:"tag"`
	Contribution string `json:"contribution" cbor:"contribution"`
}

type digestResponse struct {
	LeafDigest string       `json:"leaf_digest" cbor:"leaf_digest"`
	RootTag    string       `json:"root_tag" cbor:"root_tag"`
	Parts      []digestPart `json:"parts" cbor:"parts"`
}

type recordResponse struct {
	ID          string `json:"id" cbor:"id"`
	Fingerprint string `json:"fingerprint" cbor:"fingerprint"`
	LeafDigest  string `json:"leaf_digest" cbor:"leaf_digest"`
	Subtree     string `json:"subtree" cbor:"subtree"`
	MerkleRoot  string `json:"merkle_root,omitempty" cbor:"merkle_root,omitempty"`
	BlockNumber int64  `json:"block_number,omitempty" cbor:"block_number,omitempty"`
	Verified    bool   `json:"verified" cbor:"verified"`
	Reason      string `json:"reason,omitempty" cbor:"reason,omitempty"`
	Network     string `json:"network" cbor:"network"`
	Contract    string `json:"contract" cbor:"contract"`
	CreatedAt   string `json:"created_at" cbor:"created_at"`
}

type recordsResponse struct {
	LeafDigest string           `json:"leaf_digest" cbor:"leaf_digest"`
	Records    []recordResponse `json:"records" cbor:"records"`
}

func (s *Server) handleNoRoute(c *gin.Context) {
	switch c.Request.URL.Path {
	case "/v1/certificates:verify":
		switch c.Request.Method {
		case http.MethodGet:
			s.handleVerifyQuery(c)
			return
		case http.MethodPost:
			s.handleVerifyBody(c)
			return
		}
	case "/v1/certificates:digest":
		if c.Request.Method == http.MethodPost {
			s.handleDigest(c)
			return
		}
	}
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

// handleVerifyQuery serves the query string form used by links printed on
// certificates: ?certificate=<xml>&subtree=<path>.
func (s *Server) handleVerifyQuery(c *gin.Context) {
	if s.verifyUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if !s.enforceRateLimit(c, routeCertificatesVerify) {
		return
	}
	var req usecase.VerifyCertificateRequest
	if v, ok := c.GetQuery("certificate"); ok {
		req.Certificate = &v
	}
	if v, ok := c.GetQuery("subtree"); ok {
		req.Subtree = &v
	}
	s.verify(c, req)
}

func (s *Server) handleVerifyBody(c *gin.Context) {
	if s.verifyUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if !s.enforceRateLimit(c, routeCertificatesVerify) {
		return
	}
	body, err := readBody(c, s.bodyLimit())
	if err != nil {
		writeBodyError(c, err)
		return
	}
	var in verifyRequest
	if err := json.Unmarshal(body, &in); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	s.verify(c, usecase.VerifyCertificateRequest{
		Certificate: in.Certificate,
		Subtree:     in.Subtree,
	})
}

func (s *Server) verify(c *gin.Context, req usecase.VerifyCertificateRequest) {
	if req.Certificate != nil && s.cfg.MaxCertificateBytes > 0 && len(*req.Certificate) > s.cfg.MaxCertificateBytes {
		render(c, http.StatusRequestEntityTooLarge, verifyResponse{
			VerificationResult: domain.VerificationResult{
				Reason: domain.ReasonPayloadTooLarge,
				Ledger: s.verifyUC.Info,
			},
			Error: &errorResponse{Code: "PAYLOAD_TOO_LARGE", Message: domain.ErrPayloadTooLarge.Error()},
		})
		return
	}
	res, err := s.verifyUC.Execute(c.Request.Context(), req)
	if err != nil {
		if res == nil || res.Reason == "" {
			writeError(c, err)
			return
		}
		status, code := errorStatus(err)
		render(c, status, verifyResponse{
			VerificationResult: *res,
			Error:              &errorResponse{Code: code, Message: err.Error()},
		})
		return
	}
	render(c, http.StatusOK, verifyResponse{VerificationResult: *res})
}

func (s *Server) handleDigest(c *gin.Context) {
	if !s.enforceRateLimit(c, routeCertificatesDigest) {
		return
	}
	body, err := readBody(c, s.bodyLimit())
	if err != nil {
		writeBodyError(c, err)
		return
	}
	var in digestRequest
	if err := json.Unmarshal(body, &in); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	root, err := canon.Parse([]byte(in.Certificate))
	if err != nil {
		writeError(c, err)
		return
	}
	out := digestResponse{
		LeafDigest: canon.ComputeLeafDigest(root).Hex(),
		RootTag:    root.Tag,
		Parts:      make([]digestPart, 0, len(root.Children)),
	}
	for _, child := range root.Children {
		out.Parts = append(out.Parts, digestPart{
			Tag:          child.Tag,
			Contribution: hex.EncodeToString(canon.Contribution(child)),
		})
	}
	render(c, http.StatusOK, out)
}

func (s *Server) handleListRecords(c *gin.Context) {
	if s.recordsUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if !s.enforceRateLimit(c, routeRecordsRead) {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
			return
		}
		limit = parsed
	}
	records, err := s.recordsUC.Execute(c.Request.Context(), c.Param("leaf_digest"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	out := recordsResponse{
		LeafDigest: c.Param("leaf_digest"),
		Records:    make([]recordResponse, 0, len(records)),
	}
	for _, rec := range records {
		out.Records = append(out.Records, buildRecordResponse(rec))
	}
	render(c, http.StatusOK, out)
}

func (s *Server) bodyLimit() int64 {
	// Room for the JSON envelope and the proof path around the certificate.
	if s.cfg.MaxCertificateBytes <= 0 {
		return 2 << 20
	}
	return int64(s.cfg.MaxCertificateBytes) + 64<<10
}

func buildRecordResponse(rec domain.VerificationRecord) recordResponse {
	return recordResponse{
		ID:          rec.ID,
		Fingerprint: rec.Fingerprint,
		LeafDigest:  rec.LeafDigest,
		Subtree:     rec.Subtree,
		MerkleRoot:  rec.MerkleRoot,
		BlockNumber: rec.BlockNumber,
		Verified:    rec.Verified,
		Reason:      rec.Reason,
		Network:     rec.Network,
		Contract:    rec.Contract,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeBodyError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrPayloadTooLarge) {
		writeError(c, err)
		return
	}
	writeErrorCode(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrMissingInput):
		return http.StatusBadRequest, "MISSING_INPUT"
	case errors.Is(err, domain.ErrMalformedDocument):
		return http.StatusBadRequest, "MALFORMED_DOCUMENT"
	case errors.Is(err, domain.ErrMalformedProof):
		return http.StatusBadRequest, "MALFORMED_PROOF"
	case errors.Is(err, domain.ErrInvalidDigest):
		return http.StatusBadRequest, "INVALID_DIGEST"
	case errors.Is(err, domain.ErrVerificationFailed):
		return http.StatusUnprocessableEntity, "VERIFICATION_FAILED"
	case errors.Is(err, domain.ErrPolicyDenied):
		return http.StatusForbidden, "POLICY_DENIED"
	case errors.Is(err, domain.ErrLedgerUnavailable):
		return http.StatusBadGateway, "LEDGER_UNAVAILABLE"
	case errors.Is(err, domain.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeErrorCode(c, status, code, message)
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	render(c, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
