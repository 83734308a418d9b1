package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodes(t *testing.T) {
	t.Run("wrapped coded error keeps outer code", func(t *testing.T) {
		inner := New(CodeNotFound, "audit not found")
		outer := Wrap(inner, CodeInternal, "failed to load audit")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.False(t, HasCode(outer, CodeNotFound))
	})

	t.Run("fmt wrapping still finds the code", func(t *testing.T) {
		err := fmt.Errorf("context: %w", New(CodeValidation, "value is required"))
		assert.True(t, HasCode(err, CodeValidation))
		assert.Equal(t, "value is required", MessageOf(err))
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.Empty(t, MessageOf(errors.New("boom")))
	})

	t.Run("wrap nil is nil", func(t *testing.T) {
		require.NoError(t, Wrap(nil, CodeInternal, "unused"))
	})

	t.Run("unwrap exposes cause", func(t *testing.T) {
		cause := errors.New("dial tcp: refused")
		err := Wrap(cause, CodeUnavailable, "remote store unavailable")
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "dial tcp")
	})
}
