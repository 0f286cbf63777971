package transport

import (
	"net/http"

	"github.com/nilcaream/bobai/pkg/apierr"
)

// HTTPStatusFromError maps an APIError type to the corresponding HTTP status
// code, for the HTTP adapter's non-streaming error paths (a decode failure
// before any frame has been sent). Once a prompt is underway, failures are
// reported as an error OutboundMessage instead — the turn's HTTP response
// has already started streaming by then.
func HTTPStatusFromError(err *apierr.APIError) int {
	switch err.Type {
	case apierr.TypeInvalidRequest:
		return http.StatusBadRequest
	case apierr.TypeNotFound:
		return http.StatusNotFound
	case apierr.TypeTooManyRequests:
		return http.StatusTooManyRequests
	case apierr.TypeProviderError, apierr.TypeServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
