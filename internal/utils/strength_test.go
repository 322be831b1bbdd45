package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePasswordStrength(t *testing.T) {
	assert.NoError(t, ValidatePasswordStrength("Abcdef12"))
	assert.NoError(t, ValidatePasswordStrength("S3cure-Enough"))

	assert.ErrorIs(t, ValidatePasswordStrength("Ab1"), ErrWeakPassword)          // too short
	assert.ErrorIs(t, ValidatePasswordStrength("abcdefg1"), ErrWeakPassword)     // no uppercase
	assert.ErrorIs(t, ValidatePasswordStrength("ABCDEFG1"), ErrWeakPassword)     // no lowercase
	assert.ErrorIs(t, ValidatePasswordStrength("Abcdefgh"), ErrWeakPassword)     // no digit
	assert.ErrorIs(t, ValidatePasswordStrength(""), ErrWeakPassword)

	// deny list is matched case-insensitively
	assert.ErrorIs(t, ValidatePasswordStrength("Password123"), ErrCommonPassword)
	assert.ErrorIs(t, ValidatePasswordStrength("PASSWORD123"), ErrCommonPassword)
}

func TestPasswordScore(t *testing.T) {
	assert.Equal(t, 0, PasswordScore(""))
	assert.Less(t, PasswordScore("abc"), PasswordScore("Abcdef12"))
	assert.Equal(t, 100, PasswordScore("Long-Enough-Passw0rd!"))
	assert.LessOrEqual(t, PasswordScore("aaaaaaaaaaaaaaaaaaaaaaaa"), 55)
}
