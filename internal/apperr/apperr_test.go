package apperr

import (
	"errors"
	"net/http"
	"testing"
)

func TestIndexNotFoundfStatusAndFields(t *testing.T) {
	err := IndexNotFoundf("orders")
	if err.Status() != http.StatusNotFound {
		t.Errorf("got status %d, want %d", err.Status(), http.StatusNotFound)
	}
	if err.Index != "orders" {
		t.Errorf("got index %q, want orders", err.Index)
	}
	if err.Type() != "index_not_found_exception" {
		t.Errorf("got type %q, want index_not_found_exception", err.Type())
	}
}

func TestErrorsIsMatchesSentinel(t *testing.T) {
	err := IllegalArgumentf("bad field %s", "age")
	if !errors.Is(err, ErrIllegalArgument) {
		t.Error("expected errors.Is to match the wrapped sentinel")
	}
	if errors.Is(err, ErrSecurity) {
		t.Error("expected errors.Is to not match an unrelated sentinel")
	}
}

func TestStatusForBareSentinel(t *testing.T) {
	if StatusFor(ErrDocumentMissing) != http.StatusNotFound {
		t.Errorf("got %d, want 404", StatusFor(ErrDocumentMissing))
	}
	if StatusFor(errors.New("unrelated")) != http.StatusInternalServerError {
		t.Error("expected an unrecognized error to default to 500")
	}
}

func TestWithIndexAttachesUUID(t *testing.T) {
	err := MapperParsingf("boom").WithIndex("orders", "abc123")
	if err.Index != "orders" || err.IndexUUID != "abc123" {
		t.Errorf("got %+v, want index=orders uuid=abc123", err)
	}
}

func TestErrorMessageIncludesTypeAndReason(t *testing.T) {
	err := ParseExceptionf("unexpected token")
	msg := err.Error()
	if msg != "parse_exception: unexpected token" {
		t.Errorf("got %q, want %q", msg, "parse_exception: unexpected token")
	}
}
