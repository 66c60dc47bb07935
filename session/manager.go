package session

import (
	"context"
	"sync"
	"time"

	"github.com/quorumkv/raft/internal/xlog"
	"github.com/quorumkv/raft/raftpb"
)

// ReadIndexFunc confirms the leader still holds a live quorum and
// returns the log index that is safe to read from (raft.Node.ReadIndex).
// Manager never imports the raft package directly — it is handed this
// as a function value by whatever wires a Node to a Manager — so the
// two packages stay independent (spec §4.3/§4.4 are separate modules).
type ReadIndexFunc func(ctx context.Context) (uint64, error)

// PublishFunc lets a state machine push an event to the session it is
// currently executing a command for (spec §4.4 "Event publication").
type PublishFunc func(data []byte)

// StateMachine is the user-supplied application logic the session
// manager drives. It never sees raw log entries, only already
// session-scoped operations.
type StateMachine interface {
	// Apply executes a replicated command. publish may be called zero or
	// more times during Apply to emit events to the issuing session.
	Apply(sessionID uint64, operation []byte, publish PublishFunc) ([]byte, error)

	// Query executes a read-only operation against the current state.
	Query(sessionID uint64, operation []byte) ([]byte, error)
}

// Manager is the session manager of spec §4.4. Every mutating method
// must be called only from the single context applying committed
// entries in index order (spec §4.4 "all state transitions are driven
// by applied log entries"); Query may be called concurrently from a
// proxy-facing goroutine since it never mutates session state.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session
	sm       StateMachine
	logger   xlog.Logger

	readIndex ReadIndexFunc

	appliedMu    sync.Mutex
	appliedIndex uint64
}

// NewManager returns a Manager driving sm.
func NewManager(sm StateMachine, logger xlog.Logger) *Manager {
	if logger == nil {
		logger = xlog.NopLogger()
	}
	return &Manager{sessions: make(map[uint64]*Session), sm: sm, logger: logger}
}

// SetReadIndexFunc installs the leader's read-index confirmation hook,
// enabling ConsistencyLinearizable queries. Without one, a linearizable
// query fails with ErrLinearizableUnsupported rather than silently
// being served from local state that might be stale (SPEC_FULL §4 item
// 2).
func (m *Manager) SetReadIndexFunc(fn ReadIndexFunc) {
	m.mu.Lock()
	m.readIndex = fn
	m.mu.Unlock()
}

// MarkApplied records that entries up to index have been applied to the
// state machine, unblocking any linearizable query waiting on that
// index. The apply loop that drives OpenSession/KeepAlive/Command calls
// this after each entry.
func (m *Manager) MarkApplied(index uint64) {
	m.appliedMu.Lock()
	if index > m.appliedIndex {
		m.appliedIndex = index
	}
	m.appliedMu.Unlock()
}

// waitAppliedLocally blocks until index has been applied or ctx is
// done, polling rather than using a condition variable so a caller
// whose context is already canceled never blocks (the teacher's
// reconnect/retry loops use the same time.Timer-driven polling idiom
// rather than a condvar, see proxy.retryCall).
func (m *Manager) waitAppliedLocally(ctx context.Context, index uint64) error {
	const pollInterval = 2 * time.Millisecond
	for {
		m.appliedMu.Lock()
		reached := m.appliedIndex >= index
		m.appliedMu.Unlock()
		if reached {
			return nil
		}
		timer := time.NewTimer(pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// OpenSession applies an open-session entry (spec §4.4
// "open-session{client, timeout}").
func (m *Manager) OpenSession(index uint64, timestamp int64, req raftpb.OpenSessionRequest) raftpb.OpenSessionResponse {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked(timestamp)

	s := newSession(index, req.Client, req.TimeoutMicro, timestamp)
	m.sessions[index] = s
	return raftpb.OpenSessionResponse{Session: index}
}

// KeepAlive applies a keep-alive entry, renewing the lease and evicting
// acknowledged response-cache and event-buffer entries (spec §4.4
// "keep-alive{sessionId, commandSequence, eventIndex}").
func (m *Manager) KeepAlive(timestamp int64, req raftpb.KeepAliveRequest) raftpb.KeepAliveResponse {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked(timestamp)

	s, ok := m.sessions[req.Session]
	if !ok {
		return raftpb.KeepAliveResponse{Status: raftpb.KeepAliveUnknownSession}
	}
	if s.Status != StatusOpen {
		return raftpb.KeepAliveResponse{Status: raftpb.KeepAliveExpired}
	}

	s.LastHeartbeat = timestamp
	s.responses.evictThrough(req.CommandSequence)
	s.events.evictThrough(req.EventIndex)
	return raftpb.KeepAliveResponse{Status: raftpb.KeepAliveOK}
}

// CloseSession applies a close-session entry, firing every registered
// close listener exactly once (spec §4.4 "transition to closed; fire
// onClose to attached resources").
func (m *Manager) CloseSession(timestamp int64, req raftpb.CloseSessionRequest) raftpb.CloseSessionResponse {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked(timestamp)

	s, ok := m.sessions[req.Session]
	if !ok {
		return raftpb.CloseSessionResponse{Error: ErrUnknownSession}
	}
	m.closeLocked(s, StatusClosed)
	return raftpb.CloseSessionResponse{}
}

// Command applies a replicated command entry, enforcing exactly-once
// semantics by sequence number (spec §4.4 "Command exactly-once").
func (m *Manager) Command(timestamp int64, req raftpb.CommandRequest) raftpb.CommandResponse {
	m.mu.Lock()
	s, ok := m.sessions[req.Session]
	if !ok {
		m.mu.Unlock()
		return raftpb.CommandResponse{Error: ErrUnknownSession}
	}
	if s.Status != StatusOpen {
		m.mu.Unlock()
		return raftpb.CommandResponse{Error: ErrClosedSession}
	}

	m.expireLocked(timestamp)
	if s.Status != StatusOpen {
		m.mu.Unlock()
		return raftpb.CommandResponse{Error: ErrClosedSession}
	}
	s.LastHeartbeat = timestamp

	if req.Sequence <= s.lastSequence {
		if cached, found := s.responses.get(req.Sequence); found {
			m.mu.Unlock()
			return raftpb.CommandResponse{Result: cached.data, Error: cached.err}
		}
		m.mu.Unlock()
		return raftpb.CommandResponse{Error: ErrSequenceGap}
	}
	if req.Sequence > s.lastSequence+1 {
		m.mu.Unlock()
		return raftpb.CommandResponse{Error: ErrSequenceGap}
	}
	s.lastSequence = req.Sequence
	m.mu.Unlock() // Apply may itself re-enter the manager via publish

	var lastEventIndex uint64
	publish := func(data []byte) {
		m.mu.Lock()
		s.nextEventIdx++
		idx := s.nextEventIdx
		s.events.put(idx, data)
		lastEventIndex = idx
		m.mu.Unlock()
	}

	result, err := m.sm.Apply(req.Session, req.Operation, publish)

	m.mu.Lock()
	s.responses.put(req.Sequence, result, err)
	m.mu.Unlock()

	return raftpb.CommandResponse{Result: result, Error: err, EventIndex: lastEventIndex}
}

// Query executes a read-only operation. Queries never advance a
// session's sequence and are not cached (spec §4.4 "Queries do not
// advance sequence").
//
// Consistency governs what "current state" means (spec §4.6):
// ConsistencyLinearizable confirms this replica is still backed by a
// live quorum via readIndex before answering, and waits for its own
// apply loop to catch up to the confirmed index, so a stale leader that
// has not yet stepped down can never serve data from before the true
// commit point. ConsistencySequential and ConsistencyEventual answer
// from whatever state is locally applied right now.
func (m *Manager) Query(ctx context.Context, req raftpb.QueryRequest) raftpb.QueryResponse {
	if req.Consistency == raftpb.ConsistencyLinearizable {
		m.mu.RLock()
		readIndex := m.readIndex
		m.mu.RUnlock()
		if readIndex == nil {
			return raftpb.QueryResponse{Error: ErrLinearizableUnsupported}
		}
		index, err := readIndex(ctx)
		if err != nil {
			return raftpb.QueryResponse{Error: err}
		}
		if err := m.waitAppliedLocally(ctx, index); err != nil {
			return raftpb.QueryResponse{Error: err}
		}
	}

	m.mu.RLock()
	s, ok := m.sessions[req.Session]
	if !ok || s.Status != StatusOpen {
		m.mu.RUnlock()
		return raftpb.QueryResponse{Error: ErrUnknownSession}
	}
	m.mu.RUnlock()

	result, err := m.sm.Query(req.Session, req.Operation)
	return raftpb.QueryResponse{Result: result, Error: err}
}

// ReplayEvents returns every event a session published after
// afterIndex, for a reconnecting client (spec §4.4 "A reconnecting
// client that presents the last received event index can receive any
// unacknowledged replays within the retention window").
func (m *Manager) ReplayEvents(sessionID uint64, afterIndex uint64) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}
	return s.events.replay(afterIndex), nil
}

// RegisterOnClose attaches a listener to an open session.
func (m *Manager) RegisterOnClose(sessionID uint64, fn func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	s.OnClose(fn)
	return nil
}

// expireLocked implements "on every applied entry ... sessions with
// lastHeartbeat + timeout < now transition to expired" (spec §4.4),
// where now is the timestamp of the entry currently being applied.
func (m *Manager) expireLocked(timestamp int64) {
	for _, s := range m.sessions {
		if s.expired(timestamp) {
			m.closeLocked(s, StatusExpired)
		}
	}
}

func (m *Manager) closeLocked(s *Session, status Status) {
	if s.Status != StatusOpen {
		return
	}
	s.Status = status
	s.fireClose()
}
