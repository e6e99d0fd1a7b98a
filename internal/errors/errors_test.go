package errors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExportErrorMessage(t *testing.T) {
	err := Validation("unsupported format")
	want := "validation (warning): unsupported format"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}

	wrapped := Wrap(errors.New("disk full"), CategoryDelivery, "store artifact")
	if wrapped.Error() != "delivery (error): store artifact: disk full" {
		t.Fatalf("unexpected message: %q", wrapped.Error())
	}
}

func TestUnwrapChain(t *testing.T) {
	cause := errors.New("root cause")
	err := fmt.Errorf("outer: %w", Wrap(cause, CategoryRender, "render markdown"))

	ee, ok := AsExport(err)
	if !ok {
		t.Fatal("expected ExportError in chain")
	}
	if ee.Category != CategoryRender {
		t.Fatalf("expected render category, got %s", ee.Category)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to survive wrapping")
	}
}

func TestIsCategory(t *testing.T) {
	if !IsCategory(NotFound("missing"), CategoryNotFound) {
		t.Fatal("expected not_found category match")
	}
	if IsCategory(errors.New("plain"), CategoryNotFound) {
		t.Fatal("plain errors must not match any category")
	}
	if GetCategory(errors.New("plain")) != CategoryInternal {
		t.Fatal("plain errors default to internal")
	}
}

func TestUserMessageSanitizesInternal(t *testing.T) {
	if got := UserMessage(Composition("manuscript has no chapters")); got != "manuscript has no chapters" {
		t.Fatalf("expected composition message to pass through, got %q", got)
	}
	if got := UserMessage(errors.New("pq: connection reset")); got != "export failed unexpectedly" {
		t.Fatalf("expected generic message for unknown error, got %q", got)
	}
	if got := UserMessage(New(CategoryInternal, "nil pointer in renderer")); got != "export failed unexpectedly" {
		t.Fatalf("expected internal details hidden, got %q", got)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	adapter := NewHTTPAdapter(nil)

	cases := []struct {
		err    error
		status int
	}{
		{Validation("bad toggle"), http.StatusBadRequest},
		{NotFound("no such project"), http.StatusNotFound},
		{Composition("no chapters"), http.StatusUnprocessableEntity},
		{Render("unsupported option"), http.StatusUnprocessableEntity},
		{Delivery("store unavailable"), http.StatusBadGateway},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := adapter.StatusCodeFor(tc.err); got != tc.status {
			t.Errorf("StatusCodeFor(%v) = %d, want %d", tc.err, got, tc.status)
		}
	}
}

func TestWriteErrorPayload(t *testing.T) {
	adapter := NewHTTPAdapter(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/exports/x", nil)

	adapter.WriteError(rec, req, Validation("unknown toggle").WithContext("toggle", "include_maps"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON content type, got %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{`"error":"unknown toggle"`, `"code":"validation"`, `"include_maps"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body %q missing %q", body, want)
		}
	}
}
