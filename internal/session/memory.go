package session

import (
	"sync"
	"time"
)

// MemoryStore keeps sessions in a mutex-guarded map. Sessions are lost on
// restart; use SQLStore when that matters.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(userID int64) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sess := &Session{
		Token:      token,
		UserID:     userID,
		CreatedAt:  now,
		LastAccess: now,
	}

	s.mu.Lock()
	s.sessions[token] = sess
	s.mu.Unlock()

	out := *sess
	return &out, nil
}

func (s *MemoryStore) Validate(token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, nil
	}

	now := s.now().UTC()
	if now.Sub(sess.LastAccess) >= IdleTimeout {
		delete(s.sessions, token)
		return nil, nil
	}

	sess.LastAccess = now
	out := *sess
	return &out, nil
}

func (s *MemoryStore) Delete(token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) PurgeExpired() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	var purged int64
	for token, sess := range s.sessions {
		if now.Sub(sess.LastAccess) >= IdleTimeout {
			delete(s.sessions, token)
			purged++
		}
	}
	return purged, nil
}

// Count returns the number of live entries, expired or not.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
