package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Validation("x"), http.StatusBadRequest},
		{Conflict("x"), http.StatusConflict},
		{Forbidden("x"), http.StatusForbidden},
		{Unauthorized("x"), http.StatusUnauthorized},
		{Internal("x"), http.StatusInternalServerError},
		{Unavailable("x"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Errorf("kind %d: expected %d, got %d", tc.err.Kind, tc.want, got)
		}
	}
}

func TestGetCodeThroughWrapping(t *testing.T) {
	base := Conflict("timeslot already booked").WithCode(CodeSlotConflict)
	wrapped := fmt.Errorf("create meeting: %w", base)

	if GetCode(wrapped) != CodeSlotConflict {
		t.Fatalf("expected code %q, got %q", CodeSlotConflict, GetCode(wrapped))
	}
	if !Is(wrapped, KindConflict) {
		t.Fatal("expected wrapped error to keep conflict kind")
	}
	if GetCode(errors.New("plain")) != "" {
		t.Fatal("expected empty code for untyped error")
	}
}
