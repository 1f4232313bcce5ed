package store

import (
	"context"
	"sync"

	"certo/internal/credential/models"
	"certo/pkg/requestcontext"
)

// MemoryEvidenceStore keeps evidence rows in memory.
type MemoryEvidenceStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64][]models.Evidence
}

// NewMemoryEvidence constructs an empty in-memory evidence store.
func NewMemoryEvidence() *MemoryEvidenceStore {
	return &MemoryEvidenceStore{nextID: 1, rows: make(map[int64][]models.Evidence)}
}

func (s *MemoryEvidenceStore) Create(ctx context.Context, evidence *models.Evidence) (*models.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *evidence
	stored.ID = s.nextID
	stored.CreatedAt = requestcontext.Now(ctx)
	s.nextID++
	s.rows[stored.CredentialID] = append(s.rows[stored.CredentialID], stored)
	out := stored
	return &out, nil
}

func (s *MemoryEvidenceStore) ListByCredential(_ context.Context, credentialID int64) ([]models.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Evidence{}, s.rows[credentialID]...), nil
}
