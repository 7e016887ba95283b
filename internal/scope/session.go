package scope

import (
	"sync"
	"time"

	"github.com/mbd888/adamantine/internal/idgen"
)

// DefaultSessionTTL is the default session window.
const DefaultSessionTTL = 60 * time.Second

// Session is a short-lived container enforcing at-most-once consumption of
// nonces. Nonce consumption is an atomic check-and-insert behind the session
// mutex: two concurrent presentations of the same nonce yield exactly one
// success.
type Session struct {
	ID        string `json:"sessionId"`
	CreatedAt int64  `json:"createdAt"` // unix seconds
	ExpiresAt int64  `json:"expiresAt"` // unix seconds

	mu     sync.Mutex
	nonces map[string]struct{}
}

// NewSession creates a session active immediately for the given TTL.
// A non-positive ttl selects DefaultSessionTTL. now=0 means wall clock.
func NewSession(ttl time.Duration, now int64) *Session {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	t := unixOrNow(now)
	return &Session{
		ID:        idgen.WithPrefix("ses_"),
		CreatedAt: t,
		ExpiresAt: t + int64(ttl/time.Second),
		nonces:    make(map[string]struct{}),
	}
}

// IsActive reports whether the session window contains now.
func (s *Session) IsActive(now int64) bool {
	t := unixOrNow(now)
	return s.CreatedAt <= t && t <= s.ExpiresAt
}

// IssueNonce returns a fresh single-use nonce for this session.
func (s *Session) IssueNonce() string {
	return idgen.Hex(16)
}

// ConsumeNonce marks a nonce as used, rejecting replays. The activity check
// and the insert happen under one lock so concurrent callers racing on the
// same nonce cannot both succeed.
func (s *Session) ConsumeNonce(nonce string, now int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.IsActive(now) {
		return ErrSessionNotActive
	}
	if _, used := s.nonces[nonce]; used {
		return ErrNonceReplayed
	}
	s.nonces[nonce] = struct{}{}
	return nil
}

// ConsumedCount returns how many nonces this session has consumed.
func (s *Session) ConsumedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nonces)
}
