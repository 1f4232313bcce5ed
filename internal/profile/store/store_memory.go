package store

import (
	"context"
	"sort"
	"sync"

	"certo/internal/profile/models"
	"certo/pkg/platform/sentinel"
	"certo/pkg/requestcontext"
)

// MemoryStore keeps profiles in memory. Used in tests and when no
// database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	profiles map[int64]*models.Profile
}

// NewMemory constructs an empty in-memory profile store.
func NewMemory() *MemoryStore {
	return &MemoryStore{nextID: 1, profiles: make(map[int64]*models.Profile)}
}

func (s *MemoryStore) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := requestcontext.Now(ctx)
	stored := *profile
	stored.ID = s.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.nextID++
	s.profiles[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *profile
	return &out, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*models.Profile, error) {
	return s.findBy(func(p *models.Profile) bool { return p.Email != "" && p.Email == email })
}

func (s *MemoryStore) FindByDID(_ context.Context, did string) (*models.Profile, error) {
	return s.findBy(func(p *models.Profile) bool { return p.DID != "" && p.DID == did })
}

func (s *MemoryStore) FindByURL(_ context.Context, url string) (*models.Profile, error) {
	return s.findBy(func(p *models.Profile) bool { return p.URL != "" && p.URL == url })
}

func (s *MemoryStore) Update(ctx context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.profiles[profile.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored := *profile
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = requestcontext.Now(ctx)
	s.profiles[profile.ID] = &stored
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Profile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		copied := *profile
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) findBy(match func(*models.Profile) bool) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, profile := range s.profiles {
		if match(profile) {
			out := *profile
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}
