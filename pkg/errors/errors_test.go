package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataFor(t *testing.T) {
	meta := MetadataFor(CodeConflict)
	if meta.HTTPStatus != http.StatusConflict {
		t.Fatalf("conflict should map to 409, got %d", meta.HTTPStatus)
	}
	if !meta.DetailsAllowed {
		t.Fatal("conflict details must be exposed so callers can retry intelligently")
	}

	meta = MetadataFor(CodeLockTimeout)
	if meta.HTTPStatus != http.StatusServiceUnavailable {
		t.Fatalf("lock timeout should map to 503, got %d", meta.HTTPStatus)
	}
	if !meta.Retryable {
		t.Fatal("lock timeout must be retryable")
	}

	meta = MetadataFor(Code("bogus"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown codes fall back to 500, got %d", meta.HTTPStatus)
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := stdErrors.New("row gone")
	err := Wrap(CodeNotFound, cause, "reservation missing")

	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped cause should survive errors.Is")
	}
	if got := err.Error(); got != "NOT_FOUND: reservation missing" {
		t.Fatalf("unexpected error string %q", got)
	}

	wrapped := fmt.Errorf("outer: %w", err)
	typed := As(wrapped)
	if typed == nil || typed.Code() != CodeNotFound {
		t.Fatalf("As should find the typed error through wrapping, got %v", typed)
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeConflict, "night already booked").
		WithDetails(map[string]string{"conflicting_window": "2024-06-02"})

	details, ok := err.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details type %T", err.Details())
	}
	if details["conflicting_window"] != "2024-06-02" {
		t.Fatalf("details lost: %v", details)
	}
}

func TestWrapNilCause(t *testing.T) {
	err := Wrap(CodeValidation, nil, "amount required")
	if err.Unwrap() != nil {
		t.Fatal("nil cause should stay nil")
	}
	if err.Code() != CodeValidation {
		t.Fatalf("unexpected code %s", err.Code())
	}
}
