package sched

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExecuteRunsInSubmissionOrder(t *testing.T) {
	ctx := New("test")
	defer ctx.Close()

	var mu lockedSlice
	for i := 0; i < 50; i++ {
		i := i
		ctx.Execute(func() { mu.append(i) })
	}

	require.Eventually(t, func() bool { return mu.len() == 50 }, time.Second, time.Millisecond)
	for i, v := range mu.snapshot() {
		require.Equal(t, i, v)
	}
}

func TestExecuteNeverRunsInline(t *testing.T) {
	ctx := New("test")
	defer ctx.Close()

	done := make(chan struct{})
	ran := false
	ctx.Execute(func() {
		ctx.Execute(func() {
			ran = true
			close(done)
		})
		// ran must still be false here: nested Execute never runs synchronously.
		require.False(t, ran)
	})
	<-done
	require.True(t, ran)
}

func TestScheduleRunsAfterDelay(t *testing.T) {
	ctx := New("test")
	defer ctx.Close()

	done := make(chan struct{})
	ctx.Schedule(20*time.Millisecond, func() { close(done) })

	select {
	case <-done:
		t.Fatal("fired before delay elapsed")
	case <-time.After(5 * time.Millisecond):
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("never fired")
	}
}

func TestScheduleCancel(t *testing.T) {
	ctx := New("test")
	defer ctx.Close()

	fired := false
	s := ctx.Schedule(10*time.Millisecond, func() { fired = true })
	s.Cancel()
	time.Sleep(50 * time.Millisecond)
	require.False(t, fired)
}

func TestScheduleAtFixedRateTicksRepeatedly(t *testing.T) {
	ctx := New("test")
	defer ctx.Close()

	var mu lockedSlice
	s := ctx.ScheduleAtFixedRate(5*time.Millisecond, 5*time.Millisecond, func() { mu.append(1) })
	defer s.Cancel()

	require.Eventually(t, func() bool { return mu.len() >= 3 }, time.Second, time.Millisecond)
}

func TestCloseDiscardsPendingWork(t *testing.T) {
	ctx := New("test")
	ran := false
	ctx.Close()
	ctx.Execute(func() { ran = true })
	time.Sleep(20 * time.Millisecond)
	require.False(t, ran)
}

// lockedSlice is a tiny concurrency-safe accumulator for assertions.
type lockedSlice struct {
	mu sync.Mutex
	vs []int
}

func (s *lockedSlice) append(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vs = append(s.vs, v)
}

func (s *lockedSlice) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vs)
}

func (s *lockedSlice) snapshot() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.vs))
	copy(out, s.vs)
	return out
}
