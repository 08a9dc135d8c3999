package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFound("account", 42)
	assert.Equal(t, "account 42 not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, fmt.Errorf("load: %w", err), ErrNotFound)
	assert.NotErrorIs(t, err, ErrForbidden)
}

func TestValidationErrors(t *testing.T) {
	t.Run("Zero value is empty", func(t *testing.T) {
		var v ValidationErrors
		assert.True(t, v.Empty())
		assert.NoError(t, v.OrNil())

		var nilV *ValidationErrors
		assert.True(t, nilV.Empty())
		assert.False(t, nilV.Has("name"))
		assert.NoError(t, nilV.OrNil())
	})

	t.Run("Keeps errors in insertion order", func(t *testing.T) {
		v := &ValidationErrors{}
		v.Add("accountTypeId", "exists", "account type does not exist")
		v.Add("name", "unique", "account name already exists")

		assert.True(t, v.Has("name"))
		assert.False(t, v.Has("amount"))
		assert.Equal(t, "validation failed: accountTypeId: account type does not exist; name: account name already exists", v.Error())

		err := v.OrNil()
		assert.Error(t, err)
		got, ok := AsValidation(fmt.Errorf("create: %w", err))
		assert.True(t, ok)
		assert.Len(t, got.Fields, 2)
	})

	t.Run("AsValidation ignores other errors", func(t *testing.T) {
		_, ok := AsValidation(errors.New("boom"))
		assert.False(t, ok)
		_, ok = AsValidation(nil)
		assert.False(t, ok)
	})
}
