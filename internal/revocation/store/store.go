// Package store persists status lists.
package store

import (
	"context"

	"certo/internal/revocation/models"
)

// Store is the status list persistence contract. Lookups return
// sentinel.ErrNotFound when no row matches.
type Store interface {
	Create(ctx context.Context, list *models.StatusList) (*models.StatusList, error)
	FindByID(ctx context.Context, id int64) (*models.StatusList, error)
	FindByIssuer(ctx context.Context, issuerID int64) (*models.StatusList, error)
	Update(ctx context.Context, list *models.StatusList) error
	List(ctx context.Context) ([]*models.StatusList, error)
}
