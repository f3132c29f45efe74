package goose_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridstream/sv92/goose"
)

type queueSocket struct {
	mu     sync.Mutex
	frames [][]byte
}

func (q *queueSocket) push(frame []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.frames = append(q.frames, frame)
}

func (q *queueSocket) Receive() ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == 0 {
		return nil, nil
	}
	f := q.frames[0]
	q.frames = q.frames[1:]
	return f, nil
}

func TestListenerFiresStopOnMatchingRef(t *testing.T) {
	sock := &queueSocket{}
	l := goose.New(sock, goose.StopCondition{GoCBRefContains: "STOP"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, cancel)
		close(done)
	}()

	sock.push(buildGooseFrame("IED1/LLN0$GO$STOP_CTRL", 1, 1))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop within timeout")
	}

	result := l.LastResult()
	assert.True(t, result.Stopped)
	assert.Equal(t, "IED1/LLN0$GO$STOP_CTRL", result.Reason)
}

func TestListenerIgnoresNonMatchingRef(t *testing.T) {
	sock := &queueSocket{}
	l := goose.New(sock, goose.StopCondition{GoCBRefContains: "STOP"})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	sock.push(buildGooseFrame("IED1/LLN0$GO$NORMAL", 1, 1))

	l.Run(ctx, cancel)

	result := l.LastResult()
	assert.False(t, result.Stopped)
	require.Equal(t, context.DeadlineExceeded, ctx.Err())
}
