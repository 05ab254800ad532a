package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxonomyPredicates(t *testing.T) {
	validation := Validation(CodeInvalidArgument, "weekday %d out of range", 9)
	notFound := NotFound("recurring class", int64(42))
	conflict := Conflict(CodeSlotAlreadyCommitted, "slot taken")
	storage := Storage("create class", errors.New("connection reset"))

	assert.True(t, IsValidation(validation))
	assert.True(t, IsNotFound(notFound))
	assert.True(t, IsConflict(conflict))
	assert.True(t, IsStorage(storage))

	// Classes are disjoint.
	assert.False(t, IsConflict(validation))
	assert.False(t, IsValidation(conflict))
	assert.False(t, IsStorage(notFound))
	assert.False(t, IsNotFound(storage))
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	conflict := Conflict(CodeTooSoon, "replacement too soon")
	wrapped := fmt.Errorf("replace commitment: %w", conflict)

	assert.True(t, IsConflict(wrapped))
	assert.Equal(t, CodeTooSoon, ConflictCode(wrapped))
}

func TestConflictCode(t *testing.T) {
	assert.Equal(t, CodeSlotNotOffered, ConflictCode(Conflict(CodeSlotNotOffered, "not offered")))
	assert.Empty(t, ConflictCode(errors.New("plain")))
	assert.Empty(t, ConflictCode(nil))
}

func TestStorageUnwrap(t *testing.T) {
	cause := errors.New("broken pipe")
	err := Storage("extend materialization", cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "extend materialization")
}

func TestNotFoundMessage(t *testing.T) {
	err := NotFound("subscription", int64(3))
	assert.Equal(t, "subscription 3 not found", err.Error())
}
