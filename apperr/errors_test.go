package apperr

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code   Code
		status int
		show   bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, show: true},
		{code: CodeNotFound, status: http.StatusNotFound, show: true},
		{code: CodeConflict, status: http.StatusConflict, show: true},
		{code: CodeInternal, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.ShowMessage != tt.show {
			t.Fatalf("code %s expected show message %v got %v", tt.code, tt.show, meta.ShowMessage)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("disk full")
	err := fmt.Errorf("assemble: %w", Wrap(CodeInternal, cause, "write failed"))

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable through the chain")
	}
	if got := CodeOf(err); got != CodeInternal {
		t.Fatalf("expected internal code, got %s", got)
	}
}

func TestCodeOfUntypedIsInternal(t *testing.T) {
	if got := CodeOf(stdErrors.New("boom")); got != CodeInternal {
		t.Fatalf("expected internal, got %s", got)
	}
	if Is(nil, CodeInternal) {
		t.Fatalf("nil error must not match any code")
	}
}

func TestConstructors(t *testing.T) {
	if !Is(NotFound("project %s", "abc"), CodeNotFound) {
		t.Fatalf("expected not found")
	}
	err := Validation("bad ratio %v", 9.0).WithDetails(map[string]string{"ratio": "out of range"})
	if err.Message() != "bad ratio 9" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	if err.Details() == nil {
		t.Fatalf("expected details to be kept")
	}
}
