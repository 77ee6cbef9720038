package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifiersSurviveWrapping(t *testing.T) {
	base := NotFound("story", "abc")
	wrapped := fmt.Errorf("load: %w", base)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.Equal(t, `story "abc" not found`, base.Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad"), http.StatusBadRequest},
		{"unsupported", UnsupportedMediaType("type %s", "text/plain"), http.StatusUnsupportedMediaType},
		{"too large", PayloadTooLarge("too big"), http.StatusRequestEntityTooLarge},
		{"not found", NotFound("media", "p1"), http.StatusNotFound},
		{"conflict", Conflict("stale", nil), http.StatusConflict},
		{"upstream", UpstreamStorage("upload", errors.New("boom")), http.StatusBadGateway},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestUpstreamStorageUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := UpstreamStorage("delete", cause)

	assert.True(t, IsUpstreamStorage(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ReasonNone, ReasonOf(err))
	assert.Equal(t, ReasonPayloadTooLarge, ReasonOf(PayloadTooLarge("x")))
}
