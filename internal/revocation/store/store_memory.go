package store

import (
	"context"
	"sort"
	"sync"

	"certo/internal/revocation/models"
	"certo/pkg/platform/sentinel"
	"certo/pkg/requestcontext"
)

// MemoryStore keeps status lists in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	lists  map[int64]*models.StatusList
}

// NewMemory constructs an empty in-memory status list store.
func NewMemory() *MemoryStore {
	return &MemoryStore{nextID: 1, lists: make(map[int64]*models.StatusList)}
}

func (s *MemoryStore) Create(ctx context.Context, list *models.StatusList) (*models.StatusList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := requestcontext.Now(ctx)
	stored := *list
	stored.ID = s.nextID
	stored.CreatedAt = now
	stored.LastUpdated = now
	s.nextID++
	s.lists[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*models.StatusList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, ok := s.lists[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *list
	return &out, nil
}

func (s *MemoryStore) FindByIssuer(_ context.Context, issuerID int64) (*models.StatusList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range s.lists {
		if list.IssuerID == issuerID {
			out := *list
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) Update(ctx context.Context, list *models.StatusList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.lists[list.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored := *list
	stored.CreatedAt = existing.CreatedAt
	stored.LastUpdated = requestcontext.Now(ctx)
	s.lists[list.ID] = &stored
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.StatusList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.StatusList, 0, len(s.lists))
	for _, list := range s.lists {
		copied := *list
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
