package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	meta := MetadataFor(CodeInsufficientStock)
	assert.Equal(t, http.StatusBadRequest, meta.HTTPStatus)
	assert.False(t, meta.Retryable)

	meta = MetadataFor(CodeDependency)
	assert.Equal(t, http.StatusServiceUnavailable, meta.HTTPStatus)
	assert.True(t, meta.Retryable)
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := Wrap(CodeConflict, cause, "duplicate lot number")

	require.NotNil(t, err)
	assert.Equal(t, CodeConflict, err.Code())
	assert.ErrorIs(t, err, cause)
}

func TestAsUnwrapsNestedTypedError(t *testing.T) {
	typed := New(CodeAlreadyAssigned, "lot reserved")
	wrapped := fmt.Errorf("outer: %w", typed)

	found := As(wrapped)
	require.NotNil(t, found)
	assert.Equal(t, CodeAlreadyAssigned, found.Code())
}
