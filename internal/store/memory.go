package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memLock struct {
	owner     string
	expiresAt time.Time
}

type memResponse struct {
	payload   []byte
	expiresAt time.Time
}

// Memory is an in-process Store with the same semantics as the Postgres
// store. It backs unit tests and single-node development runs.
type Memory struct {
	mu        sync.Mutex
	docs      map[string]Document
	locks     map[string]memLock
	responses map[string]memResponse
}

func NewMemory() *Memory {
	return &Memory{
		docs:      make(map[string]Document),
		locks:     make(map[string]memLock),
		responses: make(map[string]memResponse),
	}
}

func (m *Memory) Get(_ context.Context, key string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key]
	if !ok {
		return Document{}, ErrNotFound
	}
	cp := doc
	cp.Data = append([]byte(nil), doc.Data...)
	return cp, nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Document
	for key, doc := range m.docs {
		if strings.HasPrefix(key, prefix) {
			cp := doc
			cp.Data = append([]byte(nil), doc.Data...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) Put(_ context.Context, key string, data []byte, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[key]
	if expected > 0 {
		if !ok {
			return 0, ErrNotFound
		}
		if cur.Revision != expected {
			return 0, ErrRevisionConflict
		}
	}
	next := int64(1)
	if ok {
		next = cur.Revision + 1
	}
	m.docs[key] = Document{Key: key, Data: append([]byte(nil), data...), Revision: next}
	return next, nil
}

func (m *Memory) AcquireLock(_ context.Context, key, owner string, ttl time.Duration) error {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.locks[key]; ok {
		if cur.expiresAt.After(now) {
			return ErrLockBusy
		}
		delete(m.locks, key)
	}
	m.locks[key] = memLock{owner: owner, expiresAt: now.Add(ttl)}
	return nil
}

func (m *Memory) ReleaseLock(_ context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.locks[key]; ok && cur.owner == owner {
		delete(m.locks, key)
	}
	return nil
}

func (m *Memory) GetResponse(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.responses[key]
	if !ok || !rec.expiresAt.After(time.Now()) {
		return nil, false, nil
	}
	return append([]byte(nil), rec.payload...), true, nil
}

func (m *Memory) PutResponse(_ context.Context, key string, response []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[key] = memResponse{payload: append([]byte(nil), response...), expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *Memory) Sweep(_ context.Context, now time.Time) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var locks, responses int64
	for key, l := range m.locks {
		if !l.expiresAt.After(now) {
			delete(m.locks, key)
			locks++
		}
	}
	for key, r := range m.responses {
		if !r.expiresAt.After(now) {
			delete(m.responses, key)
			responses++
		}
	}
	return locks, responses, nil
}
