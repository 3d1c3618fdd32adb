package errors

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithCauseMatchesSentinel(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := ErrConnection.WithCause(cause)

	assert.True(t, errors.Is(err, ErrConnection))
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, IsConnection(err))
	assert.False(t, IsAuthFailed(err))
}

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	err := ErrConnection.WithDetail("host", "imap.example.com")

	require.Contains(t, err.Details, "host")
	assert.Empty(t, ErrConnection.Details, "sentinel details must stay untouched")

	// Detail maps are independent between copies too.
	other := ErrConnection.WithDetail("host", "imap.other.example.com")
	assert.Equal(t, "imap.example.com", err.Details["host"])
	assert.Equal(t, "imap.other.example.com", other.Details["host"])
}

func TestWithDetailConcurrent(t *testing.T) {
	// Supervisors for separate accounts wrap the same sentinels concurrently.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				err := ErrConnection.WithDetail("worker", n)
				assert.Equal(t, n, err.Details["worker"])
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, ErrConnection.Details)
}

func TestRetryableClassification(t *testing.T) {
	assert.True(t, ErrConnection.IsRetryable())
	assert.True(t, ErrPersistence.IsRetryable())
	assert.True(t, ErrRateLimited.IsRetryable())
	assert.False(t, ErrNoCorrespondent.IsRetryable())
	assert.True(t, ErrNoCorrespondent.IsFatal())
	assert.False(t, ErrConnection.AsFatal().IsRetryable())
}
