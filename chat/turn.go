package chat

import (
	"context"
	"io"
	"sync"
)

// Turn is an answer being generated. It is consumed by a single reader.
type Turn struct {
	sessionID string
	deltas    chan string
	done      chan struct{}
	err       error
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newTurn(sessionID string, cancel context.CancelFunc) *Turn {
	return &Turn{
		sessionID: sessionID,
		deltas:    make(chan string),
		done:      make(chan struct{}),
		cancel:    cancel,
	}
}

// SessionID returns the resolved session id.
func (t *Turn) SessionID() string {
	return t.sessionID
}

// Recv returns the next text delta. It returns io.EOF once the answer is
// complete and committed, or the generation error if the turn failed.
func (t *Turn) Recv(ctx context.Context) (string, error) {
	select {
	case delta, ok := <-t.deltas:
		if ok {
			return delta, nil
		}
		if t.err != nil {
			return "", t.err
		}
		return "", io.EOF
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Done is closed when generation has ended and the session is released.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Close stops generation if it is still running and waits for the turn
// to release its session. An incomplete turn is not committed.
func (t *Turn) Close() error {
	t.closeOnce.Do(t.cancel)
	<-t.done
	return nil
}

// finish records the outcome. It must be called exactly once, by the
// generating goroutine, after the last delta was sent.
func (t *Turn) finish(err error) {
	t.err = err
	close(t.deltas)
	t.cancel()
	close(t.done)
}
