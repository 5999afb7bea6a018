package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"certanchor/internal/domain"

	"github.com/andybalholm/brotli"
	"github.com/fxamacker/cbor/v2"
	"github.com/gin-gonic/gin"
)

const mimeCBOR = "application/cbor"

var cborEncMode = mustCBOREncMode()

func mustCBOREncMode() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}

// render writes v as CBOR when the client asks for it and as JSON otherwise.
func render(c *gin.Context, status int, v any) {
	if strings.Contains(c.GetHeader("Accept"), mimeCBOR) {
		payload, err := cborEncMode.Marshal(v)
		if err != nil {
			c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL", Message: "encode response"})
			return
		}
		c.Data(status, mimeCBOR, payload)
		return
	}
	c.JSON(status, v)
}

// readBody returns the request body, decompressing brotli bodies. Both the
// wire size and the decoded size are bounded by limit.
func readBody(c *gin.Context, limit int64) ([]byte, error) {
	var body io.Reader = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	switch enc := strings.ToLower(strings.TrimSpace(c.GetHeader("Content-Encoding"))); enc {
	case "", "identity":
	case "br":
		body = brotli.NewReader(body)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", enc)
	}
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, domain.ErrPayloadTooLarge
		}
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, domain.ErrPayloadTooLarge
	}
	return data, nil
}
