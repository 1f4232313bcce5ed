package store

import (
	"context"
	"sort"
	"sync"

	"certo/internal/achievement/models"
	"certo/pkg/platform/sentinel"
	"certo/pkg/requestcontext"
)

// MemoryStore keeps achievements in memory.
type MemoryStore struct {
	mu           sync.RWMutex
	nextID       int64
	achievements map[int64]*models.Achievement
}

// NewMemory constructs an empty in-memory achievement store.
func NewMemory() *MemoryStore {
	return &MemoryStore{nextID: 1, achievements: make(map[int64]*models.Achievement)}
}

func (s *MemoryStore) Create(ctx context.Context, achievement *models.Achievement) (*models.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := requestcontext.Now(ctx)
	stored := *achievement
	stored.ID = s.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.nextID++
	s.achievements[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*models.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	achievement, ok := s.achievements[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *achievement
	return &out, nil
}

func (s *MemoryStore) FindByAchievementID(_ context.Context, achievementID string) (*models.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, achievement := range s.achievements {
		if achievement.AchievementID == achievementID {
			out := *achievement
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) List(_ context.Context) ([]*models.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Achievement, 0, len(s.achievements))
	for _, achievement := range s.achievements {
		copied := *achievement
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
