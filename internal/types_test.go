package internal_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/abdusco/snip/internal"
	"github.com/stretchr/testify/assert"
)

func TestAvatarURL(t *testing.T) {
	// md5("myemailaddress@example.com"), the example from the gravatar docs
	want := "https://www.gravatar.com/avatar/0bc83cb571cd1c50ba6f3e8a78ef1346?d=identicon"

	assert.Equal(t, want, internal.AvatarURL("MyEmailAddress@example.com "))
	assert.Equal(t, want, internal.AvatarURL("myemailaddress@example.com"))
}

func TestAvatarURL_EmptyEmail(t *testing.T) {
	assert.Equal(t,
		"https://www.gravatar.com/avatar/00000000000000000000000000000000?d=mp",
		internal.AvatarURL("  "))
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("creating link: %w", internal.ErrSlugExists)

	assert.True(t, errors.Is(wrapped, internal.ErrConflict))
	assert.False(t, errors.Is(wrapped, internal.ErrNotFound))

	msg, ok := internal.Message(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "short url already exists", msg)
}

func TestValidationf(t *testing.T) {
	err := internal.Validationf("slug %q is reserved", "api")

	assert.ErrorIs(t, err, internal.ErrValidation)
	assert.EqualError(t, err, `slug "api" is reserved`)
}

func TestMessage_PlainError(t *testing.T) {
	_, ok := internal.Message(errors.New("boom"))
	assert.False(t, ok)
}
