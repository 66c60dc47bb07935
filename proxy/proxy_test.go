package proxy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/quorumkv/raft/raftpb"
	"github.com/quorumkv/raft/session"
	"github.com/stretchr/testify/require"
)

// fakeTransport is an in-memory Transport that can fail a configured
// number of times per node before succeeding, so retry/backoff and
// strategy selection are observable without a real cluster.
type fakeTransport struct {
	mu       sync.Mutex
	failFor  map[uint64]int // node -> remaining failures
	sessions map[uint64]uint64
	nextID   uint64
	calls    []uint64 // nodes called, in order, across every RPC kind

	commandErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failFor: make(map[uint64]int), sessions: make(map[uint64]uint64)}
}

func (f *fakeTransport) failNTimes(node uint64, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFor[node] = n
}

func (f *fakeTransport) recordAndMaybeFail(node uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, node)
	if f.failFor[node] > 0 {
		f.failFor[node]--
		return ErrRetriesExhausted
	}
	return nil
}

func (f *fakeTransport) OpenSession(ctx context.Context, node uint64, req raftpb.OpenSessionRequest) (raftpb.OpenSessionResponse, error) {
	if err := f.recordAndMaybeFail(node); err != nil {
		return raftpb.OpenSessionResponse{}, err
	}
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.mu.Unlock()
	return raftpb.OpenSessionResponse{Session: id}, nil
}

func (f *fakeTransport) CloseSession(ctx context.Context, node uint64, req raftpb.CloseSessionRequest) (raftpb.CloseSessionResponse, error) {
	if err := f.recordAndMaybeFail(node); err != nil {
		return raftpb.CloseSessionResponse{}, err
	}
	return raftpb.CloseSessionResponse{}, nil
}

func (f *fakeTransport) KeepAlive(ctx context.Context, node uint64, req raftpb.KeepAliveRequest) (raftpb.KeepAliveResponse, error) {
	if err := f.recordAndMaybeFail(node); err != nil {
		return raftpb.KeepAliveResponse{}, err
	}
	return raftpb.KeepAliveResponse{Status: raftpb.KeepAliveOK}, nil
}

func (f *fakeTransport) Command(ctx context.Context, node uint64, req raftpb.CommandRequest) (raftpb.CommandResponse, error) {
	if err := f.recordAndMaybeFail(node); err != nil {
		return raftpb.CommandResponse{}, err
	}
	f.mu.Lock()
	cmdErr := f.commandErr
	f.mu.Unlock()
	if cmdErr != nil {
		return raftpb.CommandResponse{Error: cmdErr}, nil
	}
	return raftpb.CommandResponse{Index: req.Sequence, Result: req.Operation}, nil
}

func (f *fakeTransport) Query(ctx context.Context, node uint64, req raftpb.QueryRequest) (raftpb.QueryResponse, error) {
	if err := f.recordAndMaybeFail(node); err != nil {
		return raftpb.QueryResponse{}, err
	}
	return raftpb.QueryResponse{Result: req.Operation}, nil
}

func newTestProxy(transport Transport, strategy Strategy) *Proxy {
	return New(Options{
		Transport:      transport,
		Members:        []uint64{1, 2, 3},
		Strategy:       strategy,
		TimeoutMicro:   int64(time.Second / time.Microsecond),
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
}

func TestOpenStartsSessionAndSubmitEchoesOperation(t *testing.T) {
	transport := newFakeTransport()
	p := newTestProxy(transport, StrategyLeaderOnly)
	require.NoError(t, p.Open(context.Background(), "client-a"))
	defer p.Close(context.Background())

	fut := p.Submit(context.Background(), []byte("set x=1"))
	result, err := fut.Wait()
	require.NoError(t, err)
	require.Equal(t, "set x=1", string(result))
}

func TestSubmitRetriesAcrossFailuresThenSucceeds(t *testing.T) {
	transport := newFakeTransport()
	p := newTestProxy(transport, StrategyAny)
	require.NoError(t, p.Open(context.Background(), "client-a"))
	defer p.Close(context.Background())

	transport.failNTimes(1, 5)
	transport.failNTimes(2, 5)
	transport.failNTimes(3, 5)

	fut := p.Submit(context.Background(), []byte("op"))
	result, err := fut.Wait()
	require.NoError(t, err)
	require.Equal(t, "op", string(result))
}

func TestSubmitOnUnopenedProxyFails(t *testing.T) {
	transport := newFakeTransport()
	p := newTestProxy(transport, StrategyLeaderOnly)

	fut := p.Submit(context.Background(), []byte("op"))
	_, err := fut.Wait()
	require.ErrorIs(t, err, ErrNotOpen)
}

func TestSubmitTerminalSessionErrorClosesProxy(t *testing.T) {
	transport := newFakeTransport()
	transport.commandErr = session.ErrUnknownSession
	p := newTestProxy(transport, StrategyLeaderOnly)
	require.NoError(t, p.Open(context.Background(), "client-a"))

	_, err := p.Submit(context.Background(), []byte("op")).Wait()
	require.ErrorIs(t, err, session.ErrUnknownSession)

	_, err = p.Submit(context.Background(), []byte("op2")).Wait()
	require.ErrorIs(t, err, ErrNotOpen)
}

func TestQueryEventualConsistencyRoundRobinsMembers(t *testing.T) {
	transport := newFakeTransport()
	p := newTestProxy(transport, StrategyLeaderOnly)
	require.NoError(t, p.Open(context.Background(), "client-a"))
	defer p.Close(context.Background())

	for i := 0; i < 3; i++ {
		_, err := p.Query(context.Background(), []byte("get x"), raftpb.ConsistencyEventual)
		require.NoError(t, err)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	require.Contains(t, transport.calls, uint64(1))
	require.Contains(t, transport.calls, uint64(2))
	require.Contains(t, transport.calls, uint64(3))
}

func TestQuerySequentialConsistencyTargetsLeaderHint(t *testing.T) {
	transport := newFakeTransport()
	p := newTestProxy(transport, StrategyFollowersFirst)
	require.NoError(t, p.Open(context.Background(), "client-a"))
	defer p.Close(context.Background())

	transport.mu.Lock()
	start := len(transport.calls)
	transport.mu.Unlock()

	_, err := p.Query(context.Background(), []byte("get x"), raftpb.ConsistencySequential)
	require.NoError(t, err)

	transport.mu.Lock()
	defer transport.mu.Unlock()
	queryCalls := transport.calls[start:]
	require.NotEmpty(t, queryCalls)
	// Non-eventual queries always target the leader hint (member 1 by
	// default), independent of Strategy: only Open and Submit send to
	// the nodes retryTargets lists.
	require.Equal(t, uint64(1), queryCalls[0])
}
