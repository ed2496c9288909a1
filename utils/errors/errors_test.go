package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_KeepsAPIError(t *testing.T) {
	assert.Same(t, ErrNotFound, Wrap(ErrNotFound, "OTHER", "other", http.StatusTeapot))

	wrapped := Wrap(errors.New("dial tcp: refused"), "DB_ERROR", "Database error", http.StatusInternalServerError)
	assert.Equal(t, "DB_ERROR", wrapped.Code)
	assert.Equal(t, "dial tcp: refused", wrapped.Details)
	assert.Equal(t, "DB_ERROR: Database error", wrapped.Error())
}

func TestUnavailable(t *testing.T) {
	err := Unavailable(errors.New("server selection timeout"))
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.Equal(t, ErrUnavailable.Code, err.Code)
	assert.Equal(t, "server selection timeout", err.Details)
}

func TestWithDetails_DoesNotMutateShared(t *testing.T) {
	detailed := ErrInvalidInput.WithDetails("lat out of range")
	assert.Equal(t, "lat out of range", detailed.Details)
	assert.Empty(t, ErrInvalidInput.Details)
	assert.Equal(t, ErrInvalidInput.Code, detailed.Code)
}
