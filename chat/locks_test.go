package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLocks(t *testing.T) {
	locks := newSessionLocks()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, locks.size())

	acquired := make(chan func())
	go func() {
		r, err := locks.acquire(ctx, "a")
		if err == nil {
			acquired <- r
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire must wait")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	release()
	var second func()
	select {
	case second = <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("second acquire did not proceed")
	}
	second()
	assert.Zero(t, locks.size())
}

func TestSessionLocks_ContextCancel(t *testing.T) {
	locks := newSessionLocks()
	release, err := locks.acquire(context.Background(), "a")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.acquire(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, locks.size())
}
