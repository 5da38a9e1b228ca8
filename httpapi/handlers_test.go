package httpapi

import (
	"net/http"
	"testing"

	"github.com/mattertraffic/syncgw/syncerr"
)

func TestStatusForMapsKnownKinds(t *testing.T) {
	cases := []struct {
		kind syncerr.Kind
		want int
	}{
		{syncerr.KindValidation, http.StatusBadRequest},
		{syncerr.KindNotFound, http.StatusNotFound},
		{syncerr.KindVersionMismatch, http.StatusConflict},
		{syncerr.KindUnauthorized, http.StatusUnauthorized},
		{syncerr.KindForbidden, http.StatusForbidden},
		{syncerr.KindRateLimited, http.StatusTooManyRequests},
		{syncerr.KindUpstream, http.StatusBadGateway},
	}
	for _, c := range cases {
		err := syncerr.New(c.kind, "test")
		if got := StatusFor(err); got != c.want {
			t.Errorf("StatusFor(%s) = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestStatusForDefaultsToInternalServerErrorForPlainError(t *testing.T) {
	if got := StatusFor(errPlain{"boom"}); got != http.StatusInternalServerError {
		t.Errorf("expected 500 for a non-syncerr error, got %d", got)
	}
}

type errPlain struct{ msg string }

func (e errPlain) Error() string { return e.msg }
