package cache

import (
	"context"
	"sync"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/google/uuid"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// ttlMap is a mutex-guarded map whose entries expire. A background sweep
// drops expired entries until Close is called.
type ttlMap[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

func newTTLMap[V any](sweep time.Duration) *ttlMap[V] {
	m := &ttlMap[V]{
		entries: make(map[string]entry[V]),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go m.cleanup(sweep)
	return m
}

func (m *ttlMap[V]) get(key string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (m *ttlMap[V]) set(key string, v V, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry[V]{value: v, expiresAt: m.now().Add(ttl)}
}

func (m *ttlMap[V]) delete(keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
}

func (m *ttlMap[V]) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			now := m.now()
			for key, e := range m.entries {
				if !now.Before(e.expiresAt) {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *ttlMap[V]) close() {
	m.once.Do(func() { close(m.stop) })
}

// MemoryBalanceCache keeps derived balances in process memory.
type MemoryBalanceCache struct {
	m *ttlMap[domain.Balance]
}

// NewMemoryBalanceCache creates a new in-memory balance cache.
func NewMemoryBalanceCache() *MemoryBalanceCache {
	return &MemoryBalanceCache{m: newTTLMap[domain.Balance](time.Minute)}
}

func (c *MemoryBalanceCache) Get(_ context.Context, owner uuid.UUID, kind domain.Kind) (*domain.Balance, bool, error) {
	b, ok := c.m.get(balanceKey(owner, kind))
	if !ok {
		return nil, false, nil
	}
	return &b, true, nil
}

func (c *MemoryBalanceCache) Set(_ context.Context, owner uuid.UUID, kind domain.Kind, b *domain.Balance, ttl time.Duration) error {
	c.m.set(balanceKey(owner, kind), *b, ttl)
	return nil
}

func (c *MemoryBalanceCache) InvalidateOwner(_ context.Context, owner uuid.UUID) error {
	c.m.delete(ownerBalanceKeys(owner)...)
	return nil
}

// Close stops the expiry sweep.
func (c *MemoryBalanceCache) Close() error {
	c.m.close()
	return nil
}

// MemorySessionStore keeps live session ids in process memory.
type MemorySessionStore struct {
	m *ttlMap[uuid.UUID]
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{m: newTTLMap[uuid.UUID](5 * time.Minute)}
}

func (s *MemorySessionStore) Save(_ context.Context, sessionID string, userID uuid.UUID, ttl time.Duration) error {
	s.m.set(sessionKey(sessionID), userID, ttl)
	return nil
}

func (s *MemorySessionStore) Exists(_ context.Context, sessionID string) (bool, error) {
	_, ok := s.m.get(sessionKey(sessionID))
	return ok, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.m.delete(sessionKey(sessionID))
	return nil
}

// Close stops the expiry sweep.
func (s *MemorySessionStore) Close() error {
	s.m.close()
	return nil
}

func balanceKey(owner uuid.UUID, kind domain.Kind) string {
	return "balance:" + owner.String() + ":" + string(kind)
}

func ownerBalanceKeys(owner uuid.UUID) []string {
	keys := make([]string, 0, len(domain.Kinds()))
	for _, k := range domain.Kinds() {
		keys = append(keys, balanceKey(owner, k))
	}
	return keys
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}
