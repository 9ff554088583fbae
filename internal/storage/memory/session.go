package memory

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
)

// SessionStore keeps sessions in process memory.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[int64]*model.Session
}

// NewSessionStore creates store; sessions idle for longer than ttl are forgotten.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[int64]*model.Session),
	}
}

func (s *SessionStore) Get(_ context.Context, customerID int64) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[customerID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	if s.expired(session) {
		delete(s.sessions, customerID)
		return nil, domainErrors.ErrNotFound
	}
	return session.Clone(), nil
}

func (s *SessionStore) Save(_ context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := session.Clone()
	stored.UpdatedAt = s.now()
	s.sessions[session.CustomerID] = stored
	return nil
}

func (s *SessionStore) Delete(_ context.Context, customerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, customerID)
	return nil
}

// Len returns number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, session := range s.sessions {
		if s.expired(session) {
			delete(s.sessions, id)
			continue
		}
		n++
	}
	return n
}

func (s *SessionStore) expired(session *model.Session) bool {
	return s.ttl > 0 && s.now().Sub(session.UpdatedAt) > s.ttl
}
