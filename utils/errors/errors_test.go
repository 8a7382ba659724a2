package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithCause(t *testing.T) {
	cause := stderrors.New("dial tcp: connection refused")
	err := ErrGeocodeFailed.WithCause(cause)

	assert.True(t, stderrors.Is(err, ErrGeocodeFailed))
	assert.True(t, stderrors.Is(err, cause))
	assert.False(t, stderrors.Is(err, ErrDoctorFetch))
	assert.Equal(t, cause.Error(), err.Details)
	assert.Empty(t, ErrGeocodeFailed.Details, "sentinel must not be mutated")
}

func TestWithMessage(t *testing.T) {
	err := ErrConflict.WithMessage("Username taken")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "Username taken", err.Message)
	assert.Equal(t, "Resource conflict", ErrConflict.Message)
}

func TestKinds(t *testing.T) {
	assert.Equal(t, KindValidation, ErrEmptyPlace.Kind)
	assert.Equal(t, KindUpstreamEmpty, ErrLocationNotFound.Kind)
	assert.Equal(t, KindTransport, ErrBackend.Kind)
	assert.Equal(t, KindNotFound, NewAPIError("X", "x", http.StatusNotFound).Kind)
	assert.Equal(t, KindInternal, NewAPIError("X", "x", http.StatusTeapot).Kind)
}

func TestWrap(t *testing.T) {
	assert.Same(t, ErrNoSymptoms, Wrap(ErrNoSymptoms, "OTHER", "other", http.StatusInternalServerError))

	cause := stderrors.New("disk full")
	wrapped := Wrap(cause, "DB_ERROR", "failed", http.StatusInternalServerError)
	assert.Equal(t, "DB_ERROR", wrapped.Code)
	assert.Equal(t, "disk full", wrapped.Details)
	assert.ErrorIs(t, wrapped, cause)
}
