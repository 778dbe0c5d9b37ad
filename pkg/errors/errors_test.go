package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", New(ErrInvalidInput, http.StatusConflict, "busy"), http.StatusConflict},
		{"wrapped app error", fmt.Errorf("outer: %w", Newf(ErrInternal, http.StatusTeapot, "%d", 1)), http.StatusTeapot},
		{"invalid input", fmt.Errorf("limit: %w", ErrInvalidInput), http.StatusBadRequest},
		{"closed", fmt.Errorf("update: %w", ErrClosed), http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"poisoned", fmt.Errorf("remove: %w", ErrIndexPoisoned), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwraps(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "root %q missing", "/x")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, `invalid input: root "/x" missing`, err.Error())
}
