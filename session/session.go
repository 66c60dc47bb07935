package session

// Status is a session's lifecycle state (spec §4.4).
type Status int

const (
	StatusOpen Status = iota
	StatusClosed
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Session is one client's session state, keyed by the log index of the
// open-session entry that created it (spec §4.4 "sessionId = entry.index").
type Session struct {
	ID            uint64
	Client        string
	TimeoutMicro  int64
	LastHeartbeat int64 // entry timestamp, not wall clock
	Status        Status

	lastSequence  uint64
	nextEventIdx  uint64
	responses     *responseCache
	events        *eventBuffer
	onClose       []func()
}

func newSession(id uint64, client string, timeoutMicro, timestamp int64) *Session {
	return &Session{
		ID:            id,
		Client:        client,
		TimeoutMicro:  timeoutMicro,
		LastHeartbeat: timestamp,
		Status:        StatusOpen,
		responses:     newResponseCache(),
		events:        newEventBuffer(),
	}
}

// expired reports whether this session's lease has lapsed as of now,
// the timestamp of the entry currently being applied (spec §4.4
// "Implicit expiration").
func (s *Session) expired(now int64) bool {
	return s.Status == StatusOpen && s.LastHeartbeat+s.TimeoutMicro < now
}

// OnClose registers a listener fired exactly once when this session
// transitions to closed or expired (SPEC_FULL §4 item 4: the session
// registry is the sole owner of close listeners, replacing the
// original's parent/child resource-session references).
func (s *Session) OnClose(fn func()) {
	s.onClose = append(s.onClose, fn)
}

func (s *Session) fireClose() {
	listeners := s.onClose
	s.onClose = nil
	for _, fn := range listeners {
		fn()
	}
}
