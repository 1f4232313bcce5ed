// Package store persists credentials and their evidence.
package store

import (
	"context"

	"certo/internal/credential/models"
)

// Store is the credential persistence contract. Lookups return
// sentinel.ErrNotFound when no row matches; Create returns
// sentinel.ErrConflict when the credentialId is already taken.
type Store interface {
	Create(ctx context.Context, credential *models.Credential) (*models.Credential, error)
	FindByID(ctx context.Context, id int64) (*models.Credential, error)
	FindByCredentialID(ctx context.Context, credentialID string) (*models.Credential, error)
	ListByRecipient(ctx context.Context, recipientID int64) ([]*models.Credential, error)
	Update(ctx context.Context, credential *models.Credential) error
}

// EvidenceStore persists evidence rows tied to a credential.
type EvidenceStore interface {
	Create(ctx context.Context, evidence *models.Evidence) (*models.Evidence, error)
	ListByCredential(ctx context.Context, credentialID int64) ([]models.Evidence, error)
}
