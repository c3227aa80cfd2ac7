package poolerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapturesStack(t *testing.T) {
	err := New(ErrorTypeConfig, "bad capacity")

	require.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Stack[0].Function, "TestNewCapturesStack")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "nothing"))
}

func TestWrapPreservesStack(t *testing.T) {
	inner := New(ErrorTypeNotFound, "missing")
	outer := Wrap(inner, ErrorTypeFactory, "fabrication failed")

	assert.Equal(t, inner.Stack, outer.Stack)
	assert.Same(t, inner, errors.Unwrap(outer))
}

func TestIsMatchesByType(t *testing.T) {
	err := New(ErrorTypeClosed, "registry closed during load")

	assert.True(t, errors.Is(err, ErrClosed))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(errors.New("plain"), ErrClosed))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeValidation, "wrong category").
		WithDetail("category", "resource").
		WithDetail("name", "enemy")

	assert.Equal(t, "resource", err.Details["category"])
	assert.Equal(t, "enemy", err.Details["name"])
	assert.Equal(t, "validation: wrong category", err.Error())
}
