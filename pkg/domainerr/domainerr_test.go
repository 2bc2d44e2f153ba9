package domainerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrappedSentinel(t *testing.T) {
	errUnbalanced := Rule("unbalanced_entry")
	wrapped := fmt.Errorf("%w: debit 10.00 credit 9.00", errUnbalanced)

	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindRuleViolation, kind)
	assert.True(t, errors.Is(wrapped, errUnbalanced))
	assert.True(t, IsRuleViolation(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.Equal(t, "unbalanced_entry", CodeOf(wrapped))
}

func TestKindOfPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("boom"))
	assert.False(t, ok)
	assert.Equal(t, "", CodeOf(errors.New("boom")))
}

func TestSentinelsWithSameCodeAreDistinct(t *testing.T) {
	a := NotFound("not_found")
	b := NotFound("not_found")
	assert.False(t, errors.Is(a, b))
	assert.True(t, IsNotFound(a))
	assert.True(t, IsConflict(Conflict("stale")))
	assert.True(t, IsValidation(Validation("bad")))
}
