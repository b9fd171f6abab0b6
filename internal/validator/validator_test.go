// internal/validator/validator_test.go
package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator(t *testing.T) {
	v := New()
	assert.True(t, v.Valid())

	v.Check(true, "title", "must be provided")
	assert.True(t, v.Valid())

	v.Check(false, "title", "must be provided")
	assert.False(t, v.Valid())
	assert.Equal(t, "must be provided", v.Errors["title"])

	// The first recorded error for a field wins.
	v.AddError("title", "is too long")
	assert.Equal(t, "must be provided", v.Errors["title"])
}

func TestMatchesEmail(t *testing.T) {
	assert.True(t, Matches("ada@example.com", EmailRX))
	assert.False(t, Matches("not-an-email", EmailRX))
}

func TestMatchesPhone(t *testing.T) {
	valid := []string{
		"5551234",
		"+34 600 123 456",
		"(555) 123-4567",
		"555-123-4567",
	}
	for _, number := range valid {
		assert.True(t, Matches(number, PhoneRX), number)
	}

	invalid := []string{
		"",
		"12345",                 // too short
		"call me maybe",         // letters
		"+555 123 456 789 0123", // over the column limit
		"555-123-4567-",         // trailing separator
	}
	for _, number := range invalid {
		assert.False(t, Matches(number, PhoneRX), number)
	}
}

func TestIn(t *testing.T) {
	assert.True(t, In("b", "a", "b", "c"))
	assert.False(t, In("d", "a", "b", "c"))
}

func TestUnique(t *testing.T) {
	assert.True(t, Unique([]string{"a", "b"}))
	assert.False(t, Unique([]string{"a", "a"}))
}
