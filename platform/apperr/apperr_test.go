package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindExtraction(t *testing.T) {
	err := NotFound("lead not found")
	if !Is(err, KindNotFound) {
		t.Fatal("kind not detected")
	}

	// Kind survives fmt wrapping.
	wrapped := fmt.Errorf("handling turn: %w", err)
	if GetKind(wrapped) != KindNotFound {
		t.Fatalf("kind lost through wrapping: %v", GetKind(wrapped))
	}

	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatal("plain error must be unknown kind")
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(Unavailable("gateway down")) {
		t.Fatal("unavailable must be retryable")
	}
	if !Retryable(Timeout("calendar deadline")) {
		t.Fatal("timeout must be retryable")
	}
	if Retryable(Validation("bad phone")) {
		t.Fatal("validation must not be retryable")
	}
	if Retryable(Integrity("orphan conversation")) {
		t.Fatal("integrity must not be retryable")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Validation("x"), http.StatusBadRequest},
		{Conflict("x"), http.StatusConflict},
		{Unavailable("x"), http.StatusServiceUnavailable},
		{Timeout("x"), http.StatusGatewayTimeout},
		{Internal("x"), http.StatusInternalServerError},
		{Integrity("x"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Fatalf("HTTPStatus(kind=%d) = %d, want %d", tc.err.Kind, got, tc.want)
		}
	}
}

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindUnavailable, "crm sync failed", cause).WithOp("crm.SyncLead")
	if err.Error() != "crm.SyncLead: crm sync failed" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable via errors.Is")
	}
}
