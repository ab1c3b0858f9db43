package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/solenne-institute/booking/internal/booking"
)

func TestWriteEngineErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&booking.InvalidInputError{Reason: "bad"}, http.StatusBadRequest},
		{booking.ErrNoEligiblePractitioner, http.StatusUnprocessableEntity},
		{booking.ErrSlotConflict, http.StatusConflict},
		{booking.ErrIdentityConflict, http.StatusConflict},
		{errors.New("pool exhausted"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeEngineError(rec, c.err)
		if rec.Code != c.want {
			t.Fatalf("err %v: status = %d, want %d", c.err, rec.Code, c.want)
		}
	}
}

func TestWriteEngineErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeEngineError(rec, errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	if body := rec.Body.String(); body != "internal error\n" {
		t.Fatalf("internal detail leaked: %q", body)
	}
}

func TestSplitIDs(t *testing.T) {
	got := splitIDs(" a, b ,,c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("got %v", got)
	}
	if out := splitIDs("  "); out != nil {
		t.Fatalf("blank input should yield nil, got %v", out)
	}
}
