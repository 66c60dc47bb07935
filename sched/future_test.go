package sched

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFutureWaitBlocksUntilComplete(t *testing.T) {
	f, complete := NewFuture[int]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		complete(42, nil)
	}()
	v, err := f.Wait()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestFutureWaitReturnsImmediatelyIfAlreadyDone(t *testing.T) {
	f, complete := NewFuture[string]()
	complete("done", nil)
	v, err := f.Wait()
	require.NoError(t, err)
	require.Equal(t, "done", v)
}

func TestFutureCompleteIsIdempotent(t *testing.T) {
	f, complete := NewFuture[int]()
	complete(1, nil)
	complete(2, errors.New("too late"))
	v, err := f.Wait()
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestFutureThenRunsOnContextAfterResolution(t *testing.T) {
	ctx := New("test")
	defer ctx.Close()

	f, complete := NewFuture[int]()
	resultc := make(chan int, 1)
	f.Then(ctx, func(v int, err error) {
		require.NoError(t, err)
		resultc <- v
	})
	complete(7, nil)

	select {
	case v := <-resultc:
		require.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("continuation never ran")
	}
}

func TestFutureThenOnAlreadyResolvedFutureStillRunsAsync(t *testing.T) {
	ctx := New("test")
	defer ctx.Close()

	f, complete := NewFuture[int]()
	complete(9, nil)

	ran := false
	resultc := make(chan struct{})
	f.Then(ctx, func(v int, err error) {
		ran = true
		close(resultc)
	})
	// Then must not invoke the continuation synchronously, even though
	// the Future was already resolved before Then was called.
	require.False(t, ran)
	<-resultc
	require.True(t, ran)
}

func TestFuturePropagatesError(t *testing.T) {
	f, complete := NewFuture[int]()
	wantErr := errors.New("boom")
	complete(0, wantErr)
	_, err := f.Wait()
	require.ErrorIs(t, err, wantErr)
}
