package store

import (
	"context"
	"sort"
	"sync"

	"certo/internal/credential/models"
	"certo/internal/openbadge"
	"certo/pkg/platform/sentinel"
	"certo/pkg/requestcontext"
)

// MemoryStore keeps credentials in memory.
type MemoryStore struct {
	mu          sync.RWMutex
	nextID      int64
	credentials map[int64]*models.Credential
}

// NewMemory constructs an empty in-memory credential store.
func NewMemory() *MemoryStore {
	return &MemoryStore{nextID: 1, credentials: make(map[int64]*models.Credential)}
}

func (s *MemoryStore) Create(ctx context.Context, credential *models.Credential) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.credentials {
		if existing.CredentialID == credential.CredentialID {
			return nil, sentinel.ErrConflict
		}
	}
	now := requestcontext.Now(ctx)
	stored := *credential
	stored.ID = s.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.nextID++
	s.credentials[stored.ID] = &stored
	out := copyCredential(&stored)
	return out, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	credential, ok := s.credentials[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyCredential(credential), nil
}

func (s *MemoryStore) FindByCredentialID(_ context.Context, credentialID string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, credential := range s.credentials {
		if credential.CredentialID == credentialID {
			return copyCredential(credential), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListByRecipient(_ context.Context, recipientID int64) ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Credential
	for _, credential := range s.credentials {
		if credential.RecipientID == recipientID {
			out = append(out, copyCredential(credential))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, credential *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.credentials[credential.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored := *credential
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = requestcontext.Now(ctx)
	s.credentials[credential.ID] = &stored
	return nil
}

func copyCredential(credential *models.Credential) *models.Credential {
	out := *credential
	if credential.ExpirationDate != nil {
		expiration := *credential.ExpirationDate
		out.ExpirationDate = &expiration
	}
	out.Type = append([]string(nil), credential.Type...)
	out.Proof = append([]openbadge.Proof(nil), credential.Proof...)
	return &out
}
