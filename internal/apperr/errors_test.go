package apperr

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("Podcast not found"), http.StatusNotFound},
		{Forbidden("Access denied"), http.StatusForbidden},
		{Validation("bad field"), http.StatusBadRequest},
		{New(KindStateMismatch, "stale"), http.StatusBadRequest},
		{Conflict("raced"), http.StatusConflict},
		{New(KindFetch, "feed down"), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestWrapKeepsReasonAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, KindPersistence, "Failed to save podcast")

	assert.Equal(t, "Failed to save podcast", Reason(err))
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, Is(errors.Wrap(err, "outer"), KindPersistence))
	assert.Equal(t, "Internal server error", Reason(cause))
	assert.Nil(t, Wrap(nil, KindFetch, "unused"))
}
