package proxy

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/quorumkv/raft/raftpb"
	"github.com/quorumkv/raft/sched"
	"github.com/quorumkv/raft/session"
)

// Options configures a Proxy.
type Options struct {
	Transport    Transport
	Members      []uint64
	Strategy     Strategy
	TimeoutMicro int64

	// InitialBackoff and MaxBackoff bound the retry loop of Submit/Query;
	// the loop gives up at the end of the first round of attempts that
	// finishes after TimeoutMicro has elapsed (spec §4.6).
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (o *Options) setDefaults() {
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 10 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = time.Second
	}
}

// Proxy is the client proxy of spec §4.6. Exactly one sched.Context owns
// its session lifecycle and keep-alive ticker (spec §4.7: "each ...
// proxy owns exactly one context").
type Proxy struct {
	opts Options
	ctx  *sched.Context

	mu        sync.Mutex
	sessionID uint64
	sequence  uint64
	leader    uint64
	memberIdx int
	open      bool
	keepAlive sched.Scheduled
}

// New returns a Proxy that has not yet opened a session.
func New(opts Options) *Proxy {
	opts.setDefaults()
	p := &Proxy{opts: opts, ctx: sched.New("raft-proxy")}
	if len(opts.Members) > 0 {
		p.leader = opts.Members[0]
	}
	return p
}

// Open establishes a session against the cluster and starts a
// keep-alive ticker at timeout/4 (spec §4.6 "Keep-alives are sent at
// timeout/4 intervals").
func (p *Proxy) Open(ctx context.Context, client string) error {
	resp, err := retryCall(ctx, p, func(node uint64) (raftpb.OpenSessionResponse, error) {
		return p.opts.Transport.OpenSession(ctx, node, raftpb.OpenSessionRequest{
			Client:       client,
			TimeoutMicro: p.opts.TimeoutMicro,
		})
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.sessionID = resp.Session
	p.sequence = 0
	p.open = true
	interval := time.Duration(p.opts.TimeoutMicro) * time.Microsecond / 4
	p.keepAlive = p.ctx.ScheduleAtFixedRate(interval, interval, p.sendKeepAlive)
	p.mu.Unlock()
	return nil
}

// Close ends the session and stops the keep-alive ticker.
func (p *Proxy) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return nil
	}
	sessionID := p.sessionID
	if p.keepAlive != nil {
		p.keepAlive.Cancel()
	}
	p.open = false
	p.mu.Unlock()

	_, err := p.opts.Transport.CloseSession(ctx, p.currentLeader(), raftpb.CloseSessionRequest{Session: sessionID})
	return err
}

// Submit replicates operation as a command and returns its result once
// committed and applied (spec §4.6 "submit(operation) returning a
// future").
func (p *Proxy) Submit(ctx context.Context, operation []byte) *sched.Future[[]byte] {
	fut, complete := sched.NewFuture[[]byte]()
	go func() {
		p.mu.Lock()
		if !p.open {
			p.mu.Unlock()
			complete(nil, ErrNotOpen)
			return
		}
		p.sequence++
		req := raftpb.CommandRequest{Session: p.sessionID, Sequence: p.sequence, Operation: operation}
		p.mu.Unlock()

		resp, err := retryCall(ctx, p, func(node uint64) (raftpb.CommandResponse, error) {
			return p.opts.Transport.Command(ctx, node, req)
		})
		if err != nil {
			complete(nil, err)
			return
		}
		if resp.Error != nil {
			if errors.Is(resp.Error, session.ErrUnknownSession) || errors.Is(resp.Error, session.ErrClosedSession) {
				// Terminal: no amount of retrying fixes a dead session
				// (spec §4.6 "unknown session -> surface terminally").
				p.mu.Lock()
				p.open = false
				p.mu.Unlock()
			}
			complete(nil, resp.Error)
			return
		}
		complete(resp.Result, nil)
	}()
	return fut
}

// Query serves a read according to consistency (spec §4.6
// "linearizable ... sequential ... eventual"). Linearizable and
// sequential reads both target the leader hint: the distinction between
// them is enforced server-side (session.Manager.Query's ReadIndexFunc
// confirmation, SPEC_FULL §4 item 2), not by which node the proxy picks
// — Strategy never changes which node a query goes to (eventual reads
// round-robin via nextMember regardless of Strategy); it only sets how
// many attempts retryCall makes per round, since a stale leader
// candidate must still be given the chance to confirm or lose its lease
// rather than being skipped by the proxy.
func (p *Proxy) Query(ctx context.Context, operation []byte, consistency raftpb.ConsistencyMode) ([]byte, error) {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return nil, ErrNotOpen
	}
	req := raftpb.QueryRequest{Session: p.sessionID, Operation: operation, Consistency: consistency}
	p.mu.Unlock()

	target := p.currentLeader
	if consistency == raftpb.ConsistencyEventual {
		target = p.nextMember
	}

	resp, err := retryCall(ctx, p, func(_ uint64) (raftpb.QueryResponse, error) {
		return p.opts.Transport.Query(ctx, target(), req)
	})
	if err != nil {
		return nil, err
	}
	return resp.Result, resp.Error
}

func (p *Proxy) sendKeepAlive() {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return
	}
	req := raftpb.KeepAliveRequest{Session: p.sessionID, CommandSequence: p.sequence}
	p.mu.Unlock()

	resp, err := p.opts.Transport.KeepAlive(context.Background(), p.currentLeader(), req)
	if err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if resp.Leader != 0 {
		p.leader = resp.Leader
	}
	if resp.Status != raftpb.KeepAliveOK {
		p.open = false
	}
}

// currentLeader returns the last known leader hint, defaulting to the
// first configured member if none has arrived yet.
func (p *Proxy) currentLeader() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.leader != 0 {
		return p.leader
	}
	if len(p.opts.Members) > 0 {
		return p.opts.Members[0]
	}
	return 0
}

// nextMember round-robins through the configured member list, used by
// the eventual-consistency query path (spec §4.6 "any follower, may be
// stale").
func (p *Proxy) nextMember() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.opts.Members) == 0 {
		return p.leader
	}
	m := p.opts.Members[p.memberIdx%len(p.opts.Members)]
	p.memberIdx++
	return m
}

// retryTargets lists candidate nodes in the order the configured
// Strategy should try them (spec §4.6 "leader-only, any,
// followers-first").
func (p *Proxy) retryTargets() []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.opts.Strategy {
	case StrategyFollowersFirst:
		var out []uint64
		for _, m := range p.opts.Members {
			if m != p.leader {
				out = append(out, m)
			}
		}
		return append(out, p.leader)
	case StrategyAny:
		return append([]uint64(nil), p.opts.Members...)
	default: // StrategyLeaderOnly
		return []uint64{p.leader}
	}
}

// retryCall drives call against candidate nodes chosen by p's
// configured Strategy, backing off exponentially up to MaxBackoff and
// giving up once the session's timeout has elapsed (spec §4.6 "retry
// with the configured communication strategy ... and an exponential
// backoff capped at the session timeout"). Go methods cannot carry
// their own type parameters, so this is a free function taking p
// explicitly rather than a *Proxy method.
func retryCall[T any](ctx context.Context, p *Proxy, call func(node uint64) (T, error)) (T, error) {
	deadline := time.Now().Add(time.Duration(p.opts.TimeoutMicro) * time.Microsecond)
	backoff := p.opts.InitialBackoff

	var zero T
	var lastErr error
	for {
		for _, node := range p.retryTargets() {
			if node == 0 {
				continue
			}
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			default:
			}
			result, err := call(node)
			if err == nil {
				return result, nil
			}
			lastErr = err
		}

		if time.Now().After(deadline) {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, ErrRetriesExhausted
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
		if backoff > p.opts.MaxBackoff {
			backoff = p.opts.MaxBackoff
		}
	}
}
