// Package httpadapter implements the HTTP/JSON API surface over echo,
// with Recover/RequestID/logging middleware and a Prometheus /metrics
// endpoint, covering the collections/files/crawl/sync/search resources.
package httpadapter

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
)

// errorDetail is the HTTP error envelope's inner shape.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorEnvelope struct {
	Detail errorBody `json:"detail"`
}

// statusFor maps a kberrors.Kind to its HTTP status code.
func statusFor(kind kberrors.Kind) int {
	switch kind {
	case kberrors.KindValidation, kberrors.KindChunkMetadata:
		return http.StatusBadRequest
	case kberrors.KindNotFound:
		return http.StatusNotFound
	case kberrors.KindConflict:
		return http.StatusConflict
	case kberrors.KindDependencyUnavailable:
		return http.StatusServiceUnavailable
	case kberrors.KindCancelled:
		return 499 // client closed request, nginx convention; no stdlib constant
	case kberrors.KindStorage, kberrors.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeError converts any error into the HTTP adapter's error envelope,
// choosing the status code from its kberrors.Kind when present and
// defaulting to 500 for anything else.
func writeError(c echo.Context, err error) error {
	kerr, ok := kberrors.AsError(err)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorEnvelope{Detail: errorBody{Error: errorDetail{
			Code:    "internal",
			Message: kberrors.Sanitize(err.Error()),
		}}})
	}
	code := string(kerr.Kind)
	if kerr.Code != "" {
		code = kerr.Code
	}
	return c.JSON(statusFor(kerr.Kind), errorEnvelope{Detail: errorBody{Error: errorDetail{
		Code:    code,
		Message: kerr.Message,
	}}})
}
