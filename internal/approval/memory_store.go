package approval

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory request store for tests and demo mode.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*Request
}

// NewMemoryStore creates a new in-memory request store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]*Request)}
}

func (m *MemoryStore) Create(_ context.Context, req *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.ID] = copyRequest(req)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return copyRequest(req), nil
}

func (m *MemoryStore) Update(_ context.Context, req *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[req.ID]; !ok {
		return ErrRequestNotFound
	}
	m.requests[req.ID] = copyRequest(req)
	return nil
}

func (m *MemoryStore) List(_ context.Context, walletID string, limit int) ([]*Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Request
	for _, req := range m.requests {
		if walletID == "" || req.WalletID == walletID {
			result = append(result, copyRequest(req))
		}
	}
	sortNewestFirst(result)
	return truncate(result, limit), nil
}

func (m *MemoryStore) ListByStatus(_ context.Context, status Status, limit int) ([]*Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Request
	for _, req := range m.requests {
		if req.Status == status {
			result = append(result, copyRequest(req))
		}
	}
	sortNewestFirst(result)
	return truncate(result, limit), nil
}

func sortNewestFirst(reqs []*Request) {
	sort.Slice(reqs, func(i, j int) bool {
		if !reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
		}
		return reqs[i].ID < reqs[j].ID
	})
}

func truncate(reqs []*Request, limit int) []*Request {
	if limit > 0 && len(reqs) > limit {
		return reqs[:limit]
	}
	return reqs
}

func copyRequest(req *Request) *Request {
	cp := *req
	cp.RequiredGuardians = append([]string(nil), req.RequiredGuardians...)
	cp.Decisions = append([]Decision(nil), req.Decisions...)
	return &cp
}

var _ Store = (*MemoryStore)(nil)
