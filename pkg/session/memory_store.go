package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore implements Store using an in-process map of JSON records.
// It is meant for development and tests: records do not survive a restart
// and are not shared between processes.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryRecord
	ticker   *time.Ticker
	done     chan struct{}
	once     sync.Once
}

type memoryRecord struct {
	raw     []byte
	expires *time.Time
}

func (r memoryRecord) expired(now time.Time) bool {
	return r.expires != nil && !now.Before(*r.expires)
}

// NewMemoryStore creates a new in-memory session store.
// A positive cleanupInterval starts a goroutine that sweeps expired records.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		sessions: make(map[string]memoryRecord),
		done:     make(chan struct{}),
	}

	if cleanupInterval > 0 {
		store.ticker = time.NewTicker(cleanupInterval)
		go store.cleanupLoop()
	}

	return store
}

// Get retrieves a session record. Expired records are evicted and reported as missing.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Data, error) {
	m.mu.RLock()
	rec, exists := m.sessions[id]
	m.mu.RUnlock()

	if !exists {
		return nil, nil
	}

	if now := time.Now(); rec.expired(now) {
		m.evictExpired(id, now)
		return nil, nil
	}

	var data Data
	if err := json.Unmarshal(rec.raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// evictExpired deletes id only if the record stored now is still expired,
// leaving a record written since the caller's read in place.
func (m *MemoryStore) evictExpired(id string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.sessions[id]; ok && rec.expired(now) {
		delete(m.sessions, id)
	}
}

// Set stores the record, replacing any previous one.
func (m *MemoryStore) Set(ctx context.Context, id string, data *Data) error {
	if data == nil {
		data = &Data{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[id] = memoryRecord{raw: raw, expires: data.Cookie.Expires()}
	return nil
}

// Touch replaces the cookie of an existing record, extending its expiry.
func (m *MemoryStore) Touch(ctx context.Context, id string, data *Data) error {
	if data == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.sessions[id]
	if !exists || rec.expired(time.Now()) {
		return nil
	}

	var current Data
	if err := json.Unmarshal(rec.raw, &current); err != nil {
		return err
	}
	current.Cookie = data.Cookie

	raw, err := json.Marshal(&current)
	if err != nil {
		return err
	}
	m.sessions[id] = memoryRecord{raw: raw, expires: data.Cookie.Expires()}
	return nil
}

// Destroy removes a session record
func (m *MemoryStore) Destroy(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// All returns every live record keyed by id.
func (m *MemoryStore) All(ctx context.Context) (map[string]*Data, error) {
	if err := m.DeleteExpired(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*Data, len(m.sessions))
	for id, rec := range m.sessions {
		var data Data
		if err := json.Unmarshal(rec.raw, &data); err != nil {
			return nil, err
		}
		out[id] = &data
	}
	return out, nil
}

// Len returns the number of live records.
func (m *MemoryStore) Len(ctx context.Context) (int, error) {
	if err := m.DeleteExpired(ctx); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}

// Clear removes every record.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.sessions)
	return nil
}

// DeleteExpired removes all expired records
func (m *MemoryStore) DeleteExpired(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, rec := range m.sessions {
		if rec.expired(now) {
			delete(m.sessions, id)
		}
	}

	return nil
}

// Close stops the cleanup goroutine
func (m *MemoryStore) Close() error {
	m.once.Do(func() {
		if m.ticker != nil {
			m.ticker.Stop()
			close(m.done)
		}
	})
	return nil
}

// cleanupLoop runs periodic cleanup of expired sessions
func (m *MemoryStore) cleanupLoop() {
	for {
		select {
		case <-m.ticker.C:
			_ = m.DeleteExpired(context.Background())
		case <-m.done:
			return
		}
	}
}
