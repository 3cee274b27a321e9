package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type signupProbe struct {
	Email    string  `json:"email" validate:"required,email"`
	Username string  `json:"username" validate:"required,username"`
	Password string  `json:"password" validate:"required,password"`
	Bio      *string `json:"bio" validate:"omitempty,max=500"`
	TweetID  uint    `json:"tweet_id" validate:"required,min=1"`
}

func TestStruct(t *testing.T) {
	t.Parallel()
	ok := signupProbe{Email: "a@b.co", Username: "ada_l", Password: "Secret123", TweetID: 1}
	assert.NoError(t, Struct(ok))

	bad := signupProbe{Email: "nope", Username: "a-b", Password: "short"}
	err := Struct(bad)
	if assert.Error(t, err) {
		msg := err.Error()
		assert.Contains(t, msg, "email must be a valid email address")
		assert.Contains(t, msg, "username must be 3-50")
		assert.Contains(t, msg, "password must be at least 8 characters")
		assert.Contains(t, msg, "tweet_id is required")
	}
}

func TestStruct_MaxOnPointer(t *testing.T) {
	t.Parallel()
	long := make([]byte, 501)
	for i := range long {
		long[i] = 'x'
	}
	bio := string(long)
	err := Struct(signupProbe{Email: "a@b.co", Username: "ada_l", Password: "Secret123", TweetID: 1, Bio: &bio})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "bio must be at most 500")
	}
}

func TestFormatValidationError_PassesThroughOtherErrors(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "plain", FormatValidationError(assertErr("plain")))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
