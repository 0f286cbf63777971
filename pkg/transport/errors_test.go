package transport

import (
	"net/http"
	"testing"

	"github.com/nilcaream/bobai/pkg/apierr"
)

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name       string
		errType    apierr.Type
		wantStatus int
	}{
		{"invalid_request -> 400", apierr.TypeInvalidRequest, http.StatusBadRequest},
		{"not_found -> 404", apierr.TypeNotFound, http.StatusNotFound},
		{"too_many_requests -> 429", apierr.TypeTooManyRequests, http.StatusTooManyRequests},
		{"server_error -> 500", apierr.TypeServerError, http.StatusInternalServerError},
		{"provider_error -> 500", apierr.TypeProviderError, http.StatusInternalServerError},
		{"unknown type -> 500", apierr.Type("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &apierr.APIError{Type: tt.errType, Message: "test"}
			got := HTTPStatusFromError(err)
			if got != tt.wantStatus {
				t.Errorf("HTTPStatusFromError(%q) = %d, want %d", tt.errType, got, tt.wantStatus)
			}
		})
	}
}
