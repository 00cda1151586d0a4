package infrastructure

import (
	"hash/fnv"
	"sync"
	"time"
)

// ConversationLocks tracks which conversations are being processed and
// debounces repeated submissions of the same message.
type ConversationLocks struct {
	mu       sync.Mutex
	sessions map[int64]*conversationSession
	debounce time.Duration
	now      func() time.Time
}

type conversationSession struct {
	processing bool
	lastDigest uint64
	lastAt     time.Time
}

func NewConversationLocks(debounce time.Duration) *ConversationLocks {
	return &ConversationLocks{
		sessions: make(map[int64]*conversationSession),
		debounce: debounce,
		now:      time.Now,
	}
}

// TryAcquire marks the conversation as processing. duplicate reports that
// the same content was submitted within the debounce window; otherwise
// acquired is false only while another turn is in flight.
func (l *ConversationLocks) TryAcquire(conversationID int64, content string) (acquired, duplicate bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[conversationID]
	if !ok {
		s = &conversationSession{}
		l.sessions[conversationID] = s
	}
	now := l.now()
	digest := contentDigest(content)
	if !s.lastAt.IsZero() && s.lastDigest == digest && now.Sub(s.lastAt) < l.debounce {
		return false, true
	}
	s.lastDigest = digest
	s.lastAt = now
	if s.processing {
		return false, false
	}
	s.processing = true
	return true, false
}

// Release finishes processing. Idle sessions past the debounce window are
// dropped.
func (l *ConversationLocks) Release(conversationID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[conversationID]
	if !ok {
		return
	}
	s.processing = false
	now := l.now()
	for id, other := range l.sessions {
		if !other.processing && now.Sub(other.lastAt) >= l.debounce {
			delete(l.sessions, id)
		}
	}
}

func contentDigest(content string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(content))
	return h.Sum64()
}
