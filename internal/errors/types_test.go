package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomyHTTPMapping(t *testing.T) {
	infra := NewInfrastructureError(ErrCodeIndexUnavailable, "index down")
	assert.Equal(t, http.StatusServiceUnavailable, infra.HTTPCode)
	assert.True(t, IsInfrastructure(infra))
	assert.False(t, IsValidation(infra))

	validation := NewValidationError("bad input")
	assert.Equal(t, http.StatusBadRequest, validation.HTTPCode)
	assert.True(t, IsValidation(validation))
	assert.False(t, IsInfrastructure(validation))

	notFound := NewNotFoundError("document")
	assert.Equal(t, http.StatusNotFound, notFound.HTTPCode)
}

func TestWithCausePreservesChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewInfrastructureError(ErrCodeEmbedderNotReady, "embedder down").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "embedder down")
}

func TestGetAppErrorWrapsUnknownErrors(t *testing.T) {
	plain := errors.New("boom")
	appErr := GetAppError(plain)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrCodeInternalServer, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPCode)
	assert.ErrorIs(t, appErr, plain)
}

func TestGetAppErrorUnwrapsWrappedAppError(t *testing.T) {
	inner := NewValidationError("bad filter")
	wrapped := fmt.Errorf("handling request: %w", inner)

	appErr := GetAppError(wrapped)
	assert.Equal(t, inner, appErr)
	assert.True(t, IsValidation(wrapped))
}
