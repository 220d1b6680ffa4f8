package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/carniceria-aranda/backend/internal/domain"
)

// DefaultCleanupInterval is how often expired sessions are evicted.
const DefaultCleanupInterval = 10 * time.Minute

// memoryItem is one stored session with its expiration
type memoryItem struct {
	Data       []byte
	Expiration time.Time
}

// MemoryStore is a thread-safe in-process session store with TTL support
type MemoryStore struct {
	data  map[string]memoryItem
	mutex sync.RWMutex
	now   func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a memory store and starts its janitor goroutine.
// Call Close to stop it.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	store := &MemoryStore{
		data: make(map[string]memoryItem),
		now:  time.Now,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go store.cleanupExpired(cleanupInterval)

	return store
}

// Get retrieves the session of a user
func (s *MemoryStore) Get(ctx context.Context, userID string) (*domain.Session, error) {
	s.mutex.RLock()
	item, exists := s.data[userID]
	s.mutex.RUnlock()

	if !exists || s.now().After(item.Expiration) {
		return nil, domain.ErrSessionNotFound
	}

	// Sessions round-trip through JSON so callers never share state with
	// the store, the same way the redis store behaves.
	var session domain.Session
	if err := json.Unmarshal(item.Data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Save stores a session with TTL
func (s *MemoryStore) Save(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data[session.UserID] = memoryItem{
		Data:       data,
		Expiration: s.now().Add(ttl),
	}
	return nil
}

// Delete removes the session of a user
func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.data, userID)
	return nil
}

// Size returns the number of stored sessions, expired ones included until
// the next cleanup
func (s *MemoryStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}

// Close stops the janitor goroutine. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}

// cleanupExpired removes expired sessions periodically
func (s *MemoryStore) cleanupExpired(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *MemoryStore) evictExpired() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	for key, item := range s.data {
		if now.After(item.Expiration) {
			delete(s.data, key)
		}
	}
}
