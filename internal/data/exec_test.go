// internal/data/exec_test.go
package data

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// failNTimes returns a function that fails with err for the first n calls
// and succeeds afterwards, counting every invocation.
func failNTimes(n int, err error, calls *int) func(context.Context) error {
	return func(context.Context) error {
		*calls++
		if *calls <= n {
			return err
		}
		return nil
	}
}

func TestRunSerializableSuccessFirstTry(t *testing.T) {
	calls := 0
	err := runSerializable(context.Background(), nil, failNTimes(0, nil, &calls))

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunSerializableNonRetryableFailure(t *testing.T) {
	// Constraint violations are terminal even when the caller would assent.
	calls := 0
	cause := &ConstraintError{Kind: ConstraintUnique, Column: "isbn"}
	confirm := func(int) bool { return true }

	err := runSerializable(context.Background(), confirm, failNTimes(5, cause, &calls))

	assert.Equal(t, 1, calls)
	var cerr *ConstraintError
	assert.ErrorAs(t, err, &cerr)
}

func TestRunSerializableWithoutConfirmDoesNotRetry(t *testing.T) {
	calls := 0
	err := runSerializable(context.Background(), nil, failNTimes(5, ErrSerialization, &calls))

	assert.ErrorIs(t, err, ErrSerialization)
	assert.Equal(t, 1, calls)
}

func TestRunSerializableDeclinedConfirmStops(t *testing.T) {
	calls := 0
	confirm := func(int) bool { return false }

	err := runSerializable(context.Background(), confirm, failNTimes(5, ErrSerialization, &calls))

	assert.ErrorIs(t, err, ErrSerialization)
	assert.Equal(t, 1, calls)
}

func TestRunSerializableRetriesAfterConfirmation(t *testing.T) {
	calls := 0
	var askedAttempts []int
	confirm := func(attempt int) bool {
		askedAttempts = append(askedAttempts, attempt)
		return true
	}

	err := runSerializable(context.Background(), confirm, failNTimes(1, ErrSerialization, &calls))

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []int{1}, askedAttempts)
}

func TestRunSerializableAttemptCap(t *testing.T) {
	// Even a caller that always assents runs at most maxAttempts times.
	calls := 0
	confirm := func(int) bool { return true }

	err := runSerializable(context.Background(), confirm, failNTimes(100, ErrSerialization, &calls))

	assert.ErrorIs(t, err, ErrSerialization)
	assert.Equal(t, maxAttempts, calls)
}

func TestRunSerializableDoesNotMaskOtherErrors(t *testing.T) {
	cause := errors.New("connection reset")
	calls := 0

	err := runSerializable(context.Background(), nil, failNTimes(5, cause, &calls))

	assert.Equal(t, cause, err)
	assert.Equal(t, 1, calls)
}
