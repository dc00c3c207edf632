package keyset

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	err := NewUnsupportedError("foobar", "Person")
	assert.Equal(t, `UNSUPPORTED_OPERATION: undefined operation "foobar" for Person (klass=Person)`, err.Error())

	err = NewInvalidArgumentError("limit", "length must not be negative")
	assert.Equal(t, "INVALID_ARGUMENT: limit: length must not be negative", err.Error())
}

func TestIsHelpers_Wrapped(t *testing.T) {
	cause := errors.New("no rows")
	err := fmt.Errorf("lookup failed: %w", NewKeyNotFoundError("Person", "ghost", cause))

	assert.True(t, IsKeyNotFound(err))
	assert.False(t, IsUnsupported(err))
	assert.False(t, IsInvalidArgument(err))
	assert.ErrorIs(t, err, cause)
}

func TestIsHelpers_PlainError(t *testing.T) {
	assert.False(t, IsKeyNotFound(errors.New("x")))
	assert.False(t, IsUnsupported(nil))
}
