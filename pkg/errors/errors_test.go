package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCodeThroughWrapping(t *testing.T) {
	base := New(CodeInsufficientStock, "not enough stock")
	wrapped := fmt.Errorf("create order: %w", base)

	assert.True(t, IsCode(wrapped, CodeInsufficientStock))
	assert.False(t, IsCode(wrapped, CodeConflict))
	assert.False(t, IsCode(nil, CodeInternal))
	assert.False(t, IsCode(errors.New("plain"), CodeInternal))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeDependency, cause, "call gateway")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDependency, err.Code())
	assert.Equal(t, "call gateway", err.Message())
	assert.Equal(t, "DEPENDENCY_ERROR: call gateway", err.Error())
}

func TestWrapNilCause(t *testing.T) {
	err := Wrap(CodeInternal, nil, "no cause")
	require.NotNil(t, err)
	assert.Nil(t, err.Unwrap())
}

func TestWithDetails(t *testing.T) {
	err := New(CodeInsufficientStock, "short").WithDetails(map[string]any{"requested": 10, "short": 3})
	details, ok := err.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, details["short"])
}

func TestMetadataFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, MetadataFor(CodeInsufficientStock).HTTPStatus)
	assert.Equal(t, http.StatusUnauthorized, MetadataFor(CodeSignatureMismatch).HTTPStatus)
	assert.True(t, MetadataFor(CodeConflict).Retryable)
	assert.False(t, MetadataFor(CodeStateConflict).Retryable)

	// Unknown codes fall back to internal.
	assert.Equal(t, http.StatusInternalServerError, MetadataFor(Code("MYSTERY")).HTTPStatus)
}

func TestAsReturnsNilForForeignErrors(t *testing.T) {
	assert.Nil(t, As(errors.New("plain")))
	assert.Nil(t, As(nil))

	typed := New(CodeNotFound, "missing")
	assert.Equal(t, typed, As(fmt.Errorf("outer: %w", typed)))
}
