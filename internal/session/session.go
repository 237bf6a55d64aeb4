package session

import (
	"sync"
	"time"

	"github.com/medreport/viewer/internal/models"
)

// subscriberBuffer is how many snapshots a slow subscriber may lag behind
// before newer snapshots are dropped for it.
const subscriberBuffer = 8

// Session holds the UI state of one browser.
type Session struct {
	ID string

	mu           sync.Mutex
	state        models.UploadState
	generation   uint64
	discardStale bool
	lastAccessed time.Time
	subscribers  map[int]chan models.UploadState
	nextSubID    int
	closed       bool
}

func newSession(id string, discardStale bool) *Session {
	return &Session{
		ID:           id,
		discardStale: discardStale,
		lastAccessed: time.Now(),
		subscribers:  make(map[int]chan models.UploadState),
	}
}

// State returns a snapshot of the current state.
func (s *Session) State() models.UploadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BeginSubmit starts a new submit generation and returns it. Outcomes are
// dispatched with this value so stale ones can be recognised.
func (s *Session) BeginSubmit() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// Dispatch applies a to the state and notifies subscribers. It returns the
// resulting state and whether the action was applied. A submit outcome from
// a superseded generation is dropped when the session discards stale
// responses.
func (s *Session) Dispatch(a Action) (models.UploadState, bool) {
	_, after, applied := s.Apply(a)
	return after, applied
}

// Apply is Dispatch that also returns the state the action replaced, read
// under the same lock.
func (s *Session) Apply(a Action) (before, after models.UploadState, applied bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before = s.state
	if s.discardStale && a.Generation != 0 && a.Generation < s.generation {
		return before, s.state, false
	}

	s.state = Reduce(s.state, a)
	s.lastAccessed = time.Now()

	for _, ch := range s.subscribers {
		select {
		case ch <- s.state:
		default:
		}
	}
	return before, s.state, true
}

// Subscribe returns a channel receiving the state after every applied action.
// The returned cancel func must be called to release the subscription.
func (s *Session) Subscribe() (<-chan models.UploadState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan models.UploadState, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(ch)
			}
		})
	}
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastAccessed = time.Now()
	s.mu.Unlock()
}

// LastAccessed returns when the session was last used.
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// close ends all subscriptions. Later Subscribe calls get a closed channel.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}
