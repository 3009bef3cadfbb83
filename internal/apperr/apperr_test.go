package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := Forbidden(CodeAccountExpired, "account expired")

	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrUnauthenticated))
	assert.True(t, errors.Is(err, Forbidden(CodeAccountExpired, "")))
	assert.False(t, errors.Is(err, Forbidden(CodeSubscriptionExpired, "")))
}

func TestErrorIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("login: %w", Conflict("username already exists"))

	assert.True(t, errors.Is(err, ErrConflict))
	e := As(err)
	assert.Equal(t, CodeConflict, e.Code)
}

func TestAsFallsBackToInternal(t *testing.T) {
	cause := errors.New("connection refused")
	e := As(cause)

	require.NotNil(t, e)
	assert.Equal(t, KindInternal, e.Kind)
	assert.Equal(t, CodeInternal, e.Code)
	assert.ErrorIs(t, e, cause)
}

func TestWithDetailDoesNotMutateOriginal(t *testing.T) {
	base := Forbidden(CodeSubscriptionExpired, "subscription expired")
	withContact := base.WithDetail("contact", "x")

	assert.Nil(t, base.Details)
	assert.Equal(t, "x", withContact.Details["contact"])
}
