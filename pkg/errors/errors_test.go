package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(CodeDependency, cause, "query failed")

	require.NotNil(t, err)
	assert.Equal(t, CodeDependency, err.Code())
	assert.ErrorIs(t, err, cause)
}

func TestAsUnwrapsNestedError(t *testing.T) {
	inner := New(CodeContactLimitReached, "limit reached")
	wrapped := fmt.Errorf("handling apply: %w", inner)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeContactLimitReached, typed.Code())
}

func TestHasCode(t *testing.T) {
	err := New(CodeAlreadyApplied, "dup")
	assert.True(t, HasCode(err, CodeAlreadyApplied))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(nil, CodeNotFound))
}

func TestMetadataForDomainCodes(t *testing.T) {
	cases := map[Code]int{
		CodeNotACraftsman:        http.StatusForbidden,
		CodeNotAnIndividual:      http.StatusForbidden,
		CodeAlreadyApplied:       http.StatusConflict,
		CodeNoActiveSubscription: http.StatusForbidden,
		CodeContactLimitReached:  http.StatusForbidden,
		CodeApplicantNotFound:    http.StatusBadRequest,
		CodeOnlyOpenDeletable:    http.StatusForbidden,
		CodeInvalidPlan:          http.StatusBadRequest,
		CodeDuplicateSettlement:  http.StatusConflict,
		CodeStateConflict:        http.StatusUnprocessableEntity,
	}
	for code, status := range cases {
		assert.Equal(t, status, MetadataFor(code).HTTPStatus, string(code))
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}
