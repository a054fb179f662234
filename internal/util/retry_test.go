package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry(t *testing.T) {
	t.Parallel()

	attempts := 0
	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient error")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryAllFail(t *testing.T) {
	t.Parallel()

	errPersistent := errors.New("persistent error")
	attempts := 0
	err := Retry(context.Background(), 3, 0, func() error {
		attempts++
		return errPersistent
	})
	assert.ErrorIs(t, err, errPersistent)
	assert.Equal(t, 3, attempts)
}

func TestRetryCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Retry(ctx, 3, time.Hour, func() error {
		attempts++
		return errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetryStopsOnPermanent(t *testing.T) {
	t.Parallel()

	errRejected := errors.New("rejected")
	attempts := 0
	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		return Permanent(errRejected)
	})
	assert.ErrorIs(t, err, errRejected)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, attempts)

	assert.Nil(t, Permanent(nil))
	assert.False(t, IsPermanent(errRejected))
}
